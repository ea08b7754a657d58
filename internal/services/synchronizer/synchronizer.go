// Package synchronizer re-reads ledger state and republishes it to the display.
package synchronizer

import (
	"context"
	"math/rand/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/stockdesk/internal/display"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	estimateMin  = 50
	estimateSpan = 200
)

// Reader is the read-only part of the ledger.
type Reader interface {
	CashBalance(ctx context.Context, account common.Address) (decimal.Decimal, error)
	PortfolioValue(ctx context.Context, account common.Address) (decimal.Decimal, error)
	AllHoldings(ctx context.Context, account common.Address) ([]domain.Holding, error)
	Symbols(ctx context.Context) ([]domain.Symbol, error)
	Price(ctx context.Context, symbol domain.Symbol) (decimal.Decimal, error)
}

// Estimator returns a placeholder price for a symbol whose price is unavailable.
type Estimator func(domain.Symbol) decimal.Decimal

// RandomEstimate returns a pseudo-random price in [50, 250).
func RandomEstimate(domain.Symbol) decimal.Decimal {
	return decimal.NewFromInt(int64(estimateMin + rand.IntN(estimateSpan)))
}

// Synchronizer refreshes the cash, holdings and symbol surfaces.
type Synchronizer struct {
	view     display.Display
	estimate Estimator
	logger   *zap.Logger
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithEstimator replaces the placeholder price source.
func WithEstimator(e Estimator) Option {
	return func(s *Synchronizer) {
		s.estimate = e
	}
}

// New creates a synchronizer publishing to view.
func New(view display.Display, logger *zap.Logger, opts ...Option) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{view: view, estimate: RandomEstimate, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshAll starts the balance, holdings and symbol queries in that order and
// lets each publish its surface as soon as it completes. A failing query does
// not hold back the others. The first error is returned once all finished.
func (s *Synchronizer) RefreshAll(ctx context.Context, r Reader, account common.Address) error {
	var g errgroup.Group

	g.Go(func() error { return s.RefreshBalance(ctx, r, account) })
	g.Go(func() error { return s.RefreshHoldings(ctx, r, account) })
	g.Go(func() error { return s.RefreshSymbols(ctx, r) })

	return g.Wait()
}

// RefreshBalance publishes cash and portfolio value. When the portfolio value
// cannot be read the cash is shown as an estimate of it.
func (s *Synchronizer) RefreshBalance(ctx context.Context, r Reader, account common.Address) error {
	cash, err := r.CashBalance(ctx, account)
	if err != nil {
		s.logger.Warn("balance check failed", zap.Error(err))
		s.view.ShowStatus(domain.Failure("Balance check failed: " + err.Error()))
		return errors.Wrap(err, "refresh balance")
	}

	view := domain.CashView{Cash: cash}
	value, err := r.PortfolioValue(ctx, account)
	if err != nil {
		s.logger.Warn("portfolio value unavailable, showing cash", zap.Error(err))
		view.PortfolioValue = cash
		view.ValueEstimated = true
	} else {
		view.PortfolioValue = value
	}

	s.logger.Debug("balance refreshed", zap.String("cash", cash.String()), zap.String("value", view.PortfolioValue.String()))
	s.view.ShowCash(view)
	return nil
}

// RefreshHoldings publishes the non-empty holdings priced at the current ledger price.
func (s *Synchronizer) RefreshHoldings(ctx context.Context, r Reader, account common.Address) error {
	holdings, err := r.AllHoldings(ctx, account)
	if err != nil {
		s.logger.Warn("holdings load failed", zap.Error(err))
		s.view.ShowStatus(domain.Failure("Could not load holdings: " + err.Error()))
		return errors.Wrap(err, "refresh holdings")
	}

	rows := make([]domain.HoldingRow, 0, len(holdings))
	for _, h := range holdings {
		if h.Quantity == 0 {
			continue
		}
		price, err := r.Price(ctx, h.Symbol)
		if err != nil {
			s.logger.Warn("holding price unavailable", zap.String("symbol", h.Symbol.String()), zap.Error(err))
			rows = append(rows, domain.UnpricedHoldingRow(h))
			continue
		}
		rows = append(rows, domain.NewHoldingRow(h, price))
	}

	s.view.ShowHoldings(rows)
	return nil
}

// RefreshSymbols publishes the symbol/price list. Without a ledger symbol list
// the fixed fallback is used and every quote is marked estimated; a missing
// price is replaced by an estimate.
func (s *Synchronizer) RefreshSymbols(ctx context.Context, r Reader) error {
	symbols, err := r.Symbols(ctx)
	fallback := err != nil
	if fallback {
		s.logger.Warn("symbols unavailable, using fallback list", zap.Error(err))
		symbols = domain.FallbackSymbols
	}

	quotes := make([]domain.PriceQuote, 0, len(symbols))
	for _, sym := range symbols {
		q := domain.PriceQuote{Symbol: sym, Estimated: fallback}
		price, err := r.Price(ctx, sym)
		if err != nil {
			s.logger.Debug("price unavailable, using estimate", zap.String("symbol", sym.String()), zap.Error(err))
			q.Price = s.estimate(sym)
			q.Estimated = true
		} else {
			q.Price = price
		}
		quotes = append(quotes, q)
	}

	s.view.ShowQuotes(quotes)
	return nil
}
