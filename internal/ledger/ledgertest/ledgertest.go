// Package ledgertest provides an in-memory stock ledger for tests.
//
// Ledger implements ledger.Contract and ledger.Settler. Mutations are
// validated when submitted, like a node estimating gas, and take effect only
// when the transaction is settled through WaitMined.
package ledgertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// SeedCash is the virtual cash credited on registration and reset.
const SeedCash = 1000

// Address is the address the fake ledger pretends to live at.
var Address = common.HexToAddress("0xa29ac49e928b1ccbefcc14fc3231197e679a8344")

type account struct {
	registered bool
	cash       int64
	holdings   map[string]int64
}

// Ledger is an in-memory stock ledger.
type Ledger struct {
	mu        sync.Mutex
	symbols   []string
	prices    map[string]int64
	accounts  map[common.Address]*account
	pending   map[common.Hash]func()
	nonce     uint64
	block     uint64
	noDeposit bool
	failCalls map[string]error
	revertOn  map[string]bool
	gate      chan struct{}
	calls     map[string]int
	transacts map[string]int
}

// New creates a ledger with seven symbols and fixed prices.
func New() *Ledger {
	return &Ledger{
		symbols: []string{"AAPL", "TSLA", "GOOGL", "MSFT", "AMZN", "NFLX", "META"},
		prices: map[string]int64{
			"AAPL": 150, "TSLA": 200, "GOOGL": 120, "MSFT": 300,
			"AMZN": 130, "NFLX": 400, "META": 250,
		},
		accounts:  make(map[common.Address]*account),
		pending:   make(map[common.Hash]func()),
		failCalls: make(map[string]error),
		revertOn:  make(map[string]bool),
		calls:     make(map[string]int),
		transacts: make(map[string]int),
	}
}

// Auth returns transact options signing as from.
func Auth(from common.Address) *bind.TransactOpts {
	return &bind.TransactOpts{From: from}
}

// WithoutDeposit makes depositVirtual revert, as on ledgers lacking it.
func (l *Ledger) WithoutDeposit() *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.noDeposit = true
	return l
}

// FailCall makes every read of method fail with err.
func (l *Ledger) FailCall(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failCalls[method] = err
}

// RevertOnSettle makes transactions of method revert when mined.
func (l *Ledger) RevertOnSettle(method string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revertOn[method] = true
}

// Hold blocks settlement until Release is called.
func (l *Ledger) Hold() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gate = make(chan struct{})
}

// Release lets held settlements through.
func (l *Ledger) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gate != nil {
		close(l.gate)
		l.gate = nil
	}
}

// SetPrice overrides the price of symbol.
func (l *Ledger) SetPrice(symbol string, price int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prices[symbol] = price
}

// Cash returns the settled cash of addr.
func (l *Ledger) Cash(addr common.Address) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[addr]; ok {
		return a.cash
	}
	return 0
}

// Quantity returns the settled holding of symbol for addr.
func (l *Ledger) Quantity(addr common.Address, symbol string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[addr]; ok {
		return a.holdings[symbol]
	}
	return 0
}

// Calls returns how many reads of method were made.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// Transacts returns how many transactions of method were submitted.
func (l *Ledger) Transacts(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transacts[method]
}

// Call implements ledger.Contract.
func (l *Ledger) Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls[method]++
	if err := l.failCalls[method]; err != nil {
		return err
	}

	switch method {
	case "cashBalance":
		a := l.account(params[0].(common.Address))
		*results = []interface{}{big.NewInt(a.cash)}
	case "getSymbols":
		*results = []interface{}{append([]string(nil), l.symbols...)}
	case "pricePerShare":
		price, ok := l.prices[params[0].(string)]
		if !ok {
			return errors.New("execution reverted: Unknown symbol")
		}
		*results = []interface{}{big.NewInt(price)}
	case "getAllHoldings":
		a := l.account(params[0].(common.Address))
		names := make([]string, 0, len(l.symbols))
		quantities := make([]*big.Int, 0, len(l.symbols))
		for _, s := range l.symbols {
			names = append(names, s)
			quantities = append(quantities, big.NewInt(a.holdings[s]))
		}
		*results = []interface{}{names, quantities}
	case "getPortfolioValue":
		a := l.account(params[0].(common.Address))
		value := a.cash
		for s, q := range a.holdings {
			value += q * l.prices[s]
		}
		*results = []interface{}{big.NewInt(value)}
	default:
		return fmt.Errorf("method %q not found", method)
	}
	return nil
}

// Transact implements ledger.Contract.
func (l *Ledger) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transacts[method]++
	a := l.account(opts.From)

	var effect func()
	switch method {
	case "registerUser":
		if a.registered {
			return nil, errors.New("execution reverted: Already registered")
		}
		effect = func() {
			a.registered = true
			a.cash = SeedCash
		}
	case "buyStock":
		symbol, qty := params[0].(string), params[1].(*big.Int).Int64()
		if !a.registered {
			return nil, errors.New("execution reverted: Not registered")
		}
		price, ok := l.prices[symbol]
		if !ok {
			return nil, errors.New("execution reverted: Unknown symbol")
		}
		if price*qty > a.cash {
			return nil, errors.New("execution reverted: Not enough cash")
		}
		effect = func() {
			a.cash -= price * qty
			a.holdings[symbol] += qty
		}
	case "sellStock":
		symbol, qty := params[0].(string), params[1].(*big.Int).Int64()
		if a.holdings[symbol] < qty {
			return nil, errors.New("execution reverted: Not enough shares")
		}
		price := l.prices[symbol]
		effect = func() {
			a.cash += price * qty
			a.holdings[symbol] -= qty
		}
	case "depositVirtual":
		if l.noDeposit {
			return nil, errors.New("execution reverted")
		}
		amount := params[0].(*big.Int).Int64()
		effect = func() {
			a.cash += amount
		}
	case "resetPortfolio":
		effect = func() {
			a.cash = SeedCash
			a.holdings = make(map[string]int64)
		}
	default:
		return nil, fmt.Errorf("method %q not found", method)
	}

	l.nonce++
	to := Address
	tx := types.NewTx(&types.LegacyTx{Nonce: l.nonce, To: &to, Gas: 21000, Data: []byte(method)})
	if l.revertOn[method] {
		effect = nil
	}
	l.pending[tx.Hash()] = effect

	return tx, nil
}

// WaitMined implements ledger.Settler. It applies the transaction effect.
func (l *Ledger) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	l.mu.Lock()
	gate := l.gate
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	effect, ok := l.pending[tx.Hash()]
	if !ok {
		return nil, errors.Errorf("unknown transaction %s", tx.Hash().Hex())
	}
	delete(l.pending, tx.Hash())
	l.block++

	receipt := &types.Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(l.block),
		Status:      types.ReceiptStatusSuccessful,
	}
	if effect == nil {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, nil
	}
	effect()

	return receipt, nil
}

func (l *Ledger) account(addr common.Address) *account {
	a, ok := l.accounts[addr]
	if !ok {
		a = &account{holdings: make(map[string]int64)}
		l.accounts[addr] = a
	}
	return a
}
