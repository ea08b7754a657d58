package domain

import "github.com/shopspring/decimal"

// Symbol names a tradable instrument on the ledger, e.g. AAPL.
type Symbol string

// String returns the symbol text.
func (s Symbol) String() string {
	return string(s)
}

// FallbackSymbols is displayed when the ledger symbol list cannot be read.
var FallbackSymbols = []Symbol{"AAPL", "TSLA", "GOOGL", "MSFT", "AMZN", "NFLX", "META"}

// PriceQuote is a per-refresh price for a symbol.
type PriceQuote struct {
	Symbol Symbol          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	// Estimated marks placeholder data that did not come from the ledger.
	Estimated bool `json:"estimated"`
}

// Holding is the quantity of a symbol owned by an account on the ledger.
type Holding struct {
	Symbol   Symbol `json:"symbol"`
	Quantity uint64 `json:"quantity"`
}

// HoldingRow is a holding priced for display.
type HoldingRow struct {
	Holding
	Price decimal.Decimal `json:"price"`
	Value decimal.Decimal `json:"value"`
	// PriceKnown is false when the price query failed, the row then shows N/A.
	PriceKnown bool `json:"price_known"`
}

// NewHoldingRow prices a holding.
func NewHoldingRow(h Holding, price decimal.Decimal) HoldingRow {
	return HoldingRow{
		Holding:    h,
		Price:      price,
		Value:      price.Mul(decimal.NewFromInt(int64(h.Quantity))),
		PriceKnown: true,
	}
}

// UnpricedHoldingRow returns a row for a holding whose price is unavailable.
func UnpricedHoldingRow(h Holding) HoldingRow {
	return HoldingRow{Holding: h}
}

// CashView is the cash and portfolio value surface.
type CashView struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	// ValueEstimated is set when the portfolio value could not be read and cash is shown instead.
	ValueEstimated bool `json:"value_estimated"`
}

// PortfolioView aggregates the synchronized surfaces. It is display-only and never persisted.
type PortfolioView struct {
	Cash     *CashView    `json:"cash,omitempty"`
	Holdings []HoldingRow `json:"holdings"`
	Quotes   []PriceQuote `json:"quotes"`
}
