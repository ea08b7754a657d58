package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/ledger/ledgertest"
	"go.uber.org/zap"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func newTestHandle(t *testing.T) (*Handle, *ledgertest.Ledger) {
	t.Helper()
	fake := ledgertest.New()
	h := NewHandle(ledgertest.Address, fake, ledgertest.Auth(alice), fake, zap.NewNop())
	return h, fake
}

func settle(t *testing.T, sub *Submission, err error) *types.Receipt {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, sub)
	receipt, err := sub.Wait(context.Background())
	require.NoError(t, err)
	return receipt
}

func TestHandle_RegisterSeedsCash(t *testing.T) {
	h, _ := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	assert.Equal(t, methodRegister, sub.Op())
	settle(t, sub, err)

	cash, err := h.CashBalance(ctx, alice)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.NewFromInt(ledgertest.SeedCash)))
}

func TestHandle_RegisterTwiceIsAlreadyRegistered(t *testing.T) {
	h, _ := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	settle(t, sub, err)

	_, err = h.Register(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	var revert *RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "Already registered", revert.Reason)
}

func TestHandle_EffectsOnlyAfterSettlement(t *testing.T) {
	h, fake := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	require.NoError(t, err)
	assert.Zero(t, fake.Cash(alice))

	settle(t, sub, err)
	assert.Equal(t, int64(ledgertest.SeedCash), fake.Cash(alice))
}

func TestHandle_BuyValidatesBeforeSubmitting(t *testing.T) {
	h, fake := newTestHandle(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		symbol domain.Symbol
		qty    int64
		want   error
	}{
		{name: "zero quantity", symbol: "AAPL", qty: 0, want: domain.ErrInvalidQuantity},
		{name: "negative quantity", symbol: "AAPL", qty: -3, want: domain.ErrInvalidQuantity},
		{name: "empty symbol", symbol: " ", qty: 1, want: domain.ErrInvalidSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := h.Buy(ctx, tt.symbol, tt.qty)
			assert.Nil(t, sub)
			assert.ErrorIs(t, err, tt.want)

			sub, err = h.Sell(ctx, tt.symbol, tt.qty)
			assert.Nil(t, sub)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, fake.Transacts(methodBuy))
	assert.Zero(t, fake.Transacts(methodSell))
}

func TestHandle_BuyAndSell(t *testing.T) {
	h, fake := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	settle(t, sub, err)

	sub, err = h.Buy(ctx, "AAPL", 4)
	settle(t, sub, err)
	assert.Equal(t, int64(4), fake.Quantity(alice, "AAPL"))
	assert.Equal(t, int64(ledgertest.SeedCash-4*150), fake.Cash(alice))

	sub, err = h.Sell(ctx, "AAPL", 1)
	settle(t, sub, err)
	assert.Equal(t, int64(3), fake.Quantity(alice, "AAPL"))

	holdings, err := h.AllHoldings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, holdings, 7)
	assert.Equal(t, domain.Holding{Symbol: "AAPL", Quantity: 3}, holdings[0])

	value, err := h.PortfolioValue(ctx, alice)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(ledgertest.SeedCash)))
}

func TestHandle_BuyInsufficientFunds(t *testing.T) {
	h, _ := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	settle(t, sub, err)

	_, err = h.Buy(ctx, "NFLX", 100)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestHandle_SellInsufficientHoldings(t *testing.T) {
	h, _ := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	settle(t, sub, err)

	_, err = h.Sell(ctx, "TSLA", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
}

func TestHandle_BuyUnregisteredIsReverted(t *testing.T) {
	h, _ := newTestHandle(t)

	_, err := h.Buy(context.Background(), "AAPL", 1)
	assert.ErrorIs(t, err, domain.ErrExecutionReverted)
}

func TestHandle_DepositUnavailable(t *testing.T) {
	fake := ledgertest.New().WithoutDeposit()
	h := NewHandle(ledgertest.Address, fake, ledgertest.Auth(alice), fake, nil)

	_, err := h.Deposit(context.Background(), 500)
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)
}

func TestHandle_DepositAndReset(t *testing.T) {
	h, fake := newTestHandle(t)
	ctx := context.Background()

	sub, err := h.Register(ctx)
	settle(t, sub, err)
	sub, err = h.Deposit(ctx, 500)
	settle(t, sub, err)
	assert.Equal(t, int64(ledgertest.SeedCash+500), fake.Cash(alice))

	sub, err = h.Buy(ctx, "MSFT", 2)
	settle(t, sub, err)

	sub, err = h.Reset(ctx)
	settle(t, sub, err)
	assert.Equal(t, int64(ledgertest.SeedCash), fake.Cash(alice))
	assert.Zero(t, fake.Quantity(alice, "MSFT"))
}

func TestHandle_DepositRejectsNonPositive(t *testing.T) {
	h, fake := newTestHandle(t)

	_, err := h.Deposit(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Zero(t, fake.Transacts(methodDeposit))
}

func TestSubmission_RevertedReceipt(t *testing.T) {
	h, fake := newTestHandle(t)
	ctx := context.Background()
	fake.RevertOnSettle(methodRegister)

	sub, err := h.Register(ctx)
	require.NoError(t, err)

	receipt, err := sub.Wait(ctx)
	require.NotNil(t, receipt)
	assert.ErrorIs(t, err, domain.ErrExecutionReverted)
	assert.Zero(t, fake.Cash(alice))
}

func TestHandle_QueryFailure(t *testing.T) {
	h, fake := newTestHandle(t)
	fake.FailCall(methodSymbols, errors.New("connection refused"))

	_, err := h.Symbols(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHandle_SymbolsAndPrice(t *testing.T) {
	h, _ := newTestHandle(t)
	ctx := context.Background()

	symbols, err := h.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackSymbols, symbols)

	price, err := h.Price(ctx, "TSLA")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(200)))

	_, err = h.Price(ctx, "XXXX")
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}

type staticContract struct {
	out []interface{}
}

func (c *staticContract) Call(_ *bind.CallOpts, results *[]interface{}, _ string, _ ...interface{}) error {
	*results = c.out
	return nil
}

func (c *staticContract) Transact(_ *bind.TransactOpts, method string, _ ...interface{}) (*types.Transaction, error) {
	return nil, errors.Errorf("%s not supported", method)
}

func TestHandle_AllHoldingsMismatchedResult(t *testing.T) {
	contract := &staticContract{out: []interface{}{
		[]string{"AAPL", "TSLA"},
		[]*big.Int{big.NewInt(1)},
	}}
	h := NewHandle(ledgertest.Address, contract, ledgertest.Auth(alice), nil, nil)

	_, err := h.AllHoldings(context.Background(), alice)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}

func TestHandle_UnexpectedResultType(t *testing.T) {
	h := NewHandle(ledgertest.Address, &staticContract{out: []interface{}{"oops"}}, ledgertest.Auth(alice), nil, nil)

	_, err := h.CashBalance(context.Background(), alice)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}
