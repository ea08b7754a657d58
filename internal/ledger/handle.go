// Package ledger is a typed client for the stock ledger contract.
//
// Reads are plain contract calls. Mutations are signed transactions and
// complete in two phases: Submit returns a Submission once the node accepted
// the transaction, Submission.Wait blocks until it is settled in a block.
package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"go.uber.org/zap"
)

// Contract is the generic contract binding the handle talks through.
// *bind.BoundContract implements it.
type Contract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// Settler waits until a submitted transaction is included in a block.
type Settler interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Backend is the chain connection needed to bind the ledger.
type Backend interface {
	bind.ContractBackend
	receiptReader
}

// Handle binds the ledger contract address, its ABI and the session signer.
type Handle struct {
	address  common.Address
	account  common.Address
	contract Contract
	auth     *bind.TransactOpts
	settler  Settler
	logger   *zap.Logger
}

// Bind creates a handle for the ledger deployed at address, signing with auth.
func Bind(address common.Address, backend Backend, auth *bind.TransactOpts, logger *zap.Logger) (*Handle, error) {
	if backend == nil {
		return nil, errors.New("ledger backend is required")
	}
	if auth == nil {
		return nil, errors.New("ledger signer is required")
	}

	parsed, err := abi.JSON(strings.NewReader(ABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse ledger ABI")
	}

	contract := bind.NewBoundContract(address, parsed, backend, backend, backend)

	return NewHandle(address, contract, auth, NewReceiptPoller(backend, logger), logger), nil
}

// NewHandle creates a handle over an existing contract binding.
func NewHandle(address common.Address, contract Contract, auth *bind.TransactOpts, settler Settler, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handle{
		address:  address,
		account:  auth.From,
		contract: contract,
		auth:     auth,
		settler:  settler,
		logger:   logger.With(zap.String("ledger", address.Hex())),
	}
}

// Address returns the ledger contract address.
func (h *Handle) Address() common.Address {
	return h.address
}

// Account returns the signing account.
func (h *Handle) Account() common.Address {
	return h.account
}

// Register registers the signing account on the ledger.
func (h *Handle) Register(ctx context.Context) (*Submission, error) {
	return h.transact(ctx, methodRegister)
}

// Buy buys qty shares of symbol.
func (h *Handle) Buy(ctx context.Context, symbol domain.Symbol, qty int64) (*Submission, error) {
	if err := validateOrder(symbol, qty); err != nil {
		return nil, err
	}
	return h.transact(ctx, methodBuy, symbol.String(), big.NewInt(qty))
}

// Sell sells qty shares of symbol.
func (h *Handle) Sell(ctx context.Context, symbol domain.Symbol, qty int64) (*Submission, error) {
	if err := validateOrder(symbol, qty); err != nil {
		return nil, err
	}
	return h.transact(ctx, methodSell, symbol.String(), big.NewInt(qty))
}

// Deposit credits amount of virtual cash to the signing account.
func (h *Handle) Deposit(ctx context.Context, amount int64) (*Submission, error) {
	if amount <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidQuantity, "deposit amount %d", amount)
	}
	return h.transact(ctx, methodDeposit, big.NewInt(amount))
}

// Reset clears holdings and cash back to the ledger defaults.
func (h *Handle) Reset(ctx context.Context) (*Submission, error) {
	return h.transact(ctx, methodReset)
}

// CashBalance returns the virtual cash of account.
func (h *Handle) CashBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	out, err := h.call(ctx, methodCashBalance, account)
	if err != nil {
		return decimal.Zero, err
	}
	return decimalOut(methodCashBalance, out, 0)
}

// PortfolioValue returns the ledger valuation of account (cash plus holdings).
func (h *Handle) PortfolioValue(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	out, err := h.call(ctx, methodPortfolioValue, account)
	if err != nil {
		return decimal.Zero, err
	}
	return decimalOut(methodPortfolioValue, out, 0)
}

// Symbols returns the tradable symbols.
func (h *Handle) Symbols(ctx context.Context) ([]domain.Symbol, error) {
	out, err := h.call(ctx, methodSymbols)
	if err != nil {
		return nil, err
	}
	names, err := stringsOut(methodSymbols, out, 0)
	if err != nil {
		return nil, err
	}

	symbols := make([]domain.Symbol, 0, len(names))
	for _, n := range names {
		symbols = append(symbols, domain.Symbol(n))
	}
	return symbols, nil
}

// Price returns the price per share of symbol.
func (h *Handle) Price(ctx context.Context, symbol domain.Symbol) (decimal.Decimal, error) {
	out, err := h.call(ctx, methodPrice, symbol.String())
	if err != nil {
		return decimal.Zero, err
	}
	return decimalOut(methodPrice, out, 0)
}

// AllHoldings returns every symbol the ledger tracks for account with its quantity.
func (h *Handle) AllHoldings(ctx context.Context, account common.Address) ([]domain.Holding, error) {
	out, err := h.call(ctx, methodAllHoldings, account)
	if err != nil {
		return nil, err
	}

	names, err := stringsOut(methodAllHoldings, out, 0)
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: missing quantities", methodAllHoldings)
	}
	quantities, ok := out[1].([]*big.Int)
	if !ok {
		return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: unexpected quantities type %T", methodAllHoldings, out[1])
	}
	if len(names) != len(quantities) {
		return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: %d symbols but %d quantities",
			methodAllHoldings, len(names), len(quantities))
	}

	holdings := make([]domain.Holding, 0, len(names))
	for i, name := range names {
		q := quantities[i]
		if q == nil || q.Sign() < 0 || !q.IsUint64() {
			return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: quantity of %s out of range", methodAllHoldings, name)
		}
		holdings = append(holdings, domain.Holding{Symbol: domain.Symbol(name), Quantity: q.Uint64()})
	}
	return holdings, nil
}

func (h *Handle) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: h.account}
	if err := h.contract.Call(opts, &out, method, params...); err != nil {
		h.logger.Debug("ledger query failed", zap.String("op", method), zap.Error(err))
		return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: %v", method, err)
	}
	return out, nil
}

func (h *Handle) transact(ctx context.Context, method string, params ...interface{}) (*Submission, error) {
	opts := *h.auth
	opts.Context = ctx

	tx, err := h.contract.Transact(&opts, method, params...)
	if err != nil {
		h.logger.Info("ledger transaction rejected", zap.String("op", method), zap.Error(err))
		return nil, classify(method, err)
	}

	h.logger.Info("ledger transaction submitted", zap.String("op", method), zap.String("tx", tx.Hash().Hex()))

	return &Submission{op: method, tx: tx, settler: h.settler, logger: h.logger}, nil
}

func validateOrder(symbol domain.Symbol, qty int64) error {
	if strings.TrimSpace(symbol.String()) == "" {
		return domain.ErrInvalidSymbol
	}
	if qty <= 0 {
		return errors.Wrapf(domain.ErrInvalidQuantity, "quantity %d", qty)
	}
	return nil
}

func decimalOut(method string, out []interface{}, i int) (decimal.Decimal, error) {
	if len(out) <= i {
		return decimal.Zero, errors.Wrapf(domain.ErrQueryFailed, "%s: empty result", method)
	}
	v, ok := out[i].(*big.Int)
	if !ok || v == nil {
		return decimal.Zero, errors.Wrapf(domain.ErrQueryFailed, "%s: unexpected result type %T", method, out[i])
	}
	return decimal.NewFromBigInt(v, 0), nil
}

func stringsOut(method string, out []interface{}, i int) ([]string, error) {
	if len(out) <= i {
		return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: empty result", method)
	}
	v, ok := out[i].([]string)
	if !ok {
		return nil, errors.Wrapf(domain.ErrQueryFailed, "%s: unexpected result type %T", method, out[i])
	}
	return v, nil
}
