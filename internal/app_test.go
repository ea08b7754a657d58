package internal

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/stockdesk/internal/display/displaytest"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/ledger"
	"github.com/vadiminshakov/stockdesk/internal/ledger/ledgertest"
	"github.com/vadiminshakov/stockdesk/internal/wallet"
)

var trader = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

type fakeProvider struct {
	mu        sync.Mutex
	accounts  []common.Address
	chainID   uint64
	switchErr error
	connErr   error
	// balances in wei per chain, 0.5 ETH when missing
	balances         map[uint64]*big.Int
	listeners        []func(uint64)
	accountListeners []func([]common.Address)
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	if p.connErr != nil {
		return nil, p.connErr
	}
	return p.accounts, nil
}

func (p *fakeProvider) setAccounts(accounts []common.Address) {
	p.mu.Lock()
	p.accounts = accounts
	listeners := append([]func([]common.Address){}, p.accountListeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(accounts)
	}
}

func (p *fakeProvider) SwitchChain(_ context.Context, chainID uint64) error {
	if p.switchErr != nil {
		return p.switchErr
	}
	p.mu.Lock()
	changed := p.chainID != chainID
	p.chainID = chainID
	listeners := append([]func(uint64){}, p.listeners...)
	p.mu.Unlock()
	if changed {
		for _, fn := range listeners {
			fn(chainID)
		}
	}
	return nil
}

func (p *fakeProvider) ChainID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID
}

func (p *fakeProvider) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.balances[p.chainID]; ok {
		return b, nil
	}
	return big.NewInt(5e17), nil
}

func (p *fakeProvider) Backend() (wallet.Backend, error) {
	return nil, domain.ErrNotConnected
}

func (p *fakeProvider) Transactor(account common.Address) (*bind.TransactOpts, error) {
	return ledgertest.Auth(account), nil
}

func (p *fakeProvider) OnChainChanged(fn func(uint64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *fakeProvider) OnAccountsChanged(fn func([]common.Address)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountListeners = append(p.accountListeners, fn)
}

type memJournal struct {
	mu      sync.Mutex
	records []domain.TxRecord
}

func (j *memJournal) Append(rec domain.TxRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

type fixture struct {
	app      *App
	fake     *ledgertest.Ledger
	rec      *displaytest.Recorder
	provider *fakeProvider
	journal  *memJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fake:     ledgertest.New(),
		rec:      &displaytest.Recorder{},
		provider: &fakeProvider{accounts: []common.Address{trader}, chainID: SepoliaChainID},
		journal:  &memJournal{},
	}
	binder := func(_ context.Context, address common.Address, p wallet.Provider, account common.Address) (*ledger.Handle, error) {
		auth, err := p.Transactor(account)
		if err != nil {
			return nil, err
		}
		return ledger.NewHandle(address, f.fake, auth, f.fake, nil), nil
	}
	f.app = NewApp(f.provider, f.rec, ledgertest.Address, WithBinder(binder), WithJournal(f.journal))
	return f
}

func (f *fixture) run(t *testing.T, cmds ...Command) {
	t.Helper()
	for _, cmd := range cmds {
		require.NoError(t, f.app.Dispatch(context.Background(), cmd), cmd.Intent)
	}
}

func (f *fixture) ready(t *testing.T) {
	t.Helper()
	f.run(t, Command{Intent: IntentConnect}, Command{Intent: IntentLoad}, Command{Intent: IntentRegister})
}

func TestScenarioBuy(t *testing.T) {
	f := newFixture(t)
	f.fake.SetPrice("AAPL", 80)

	f.run(t, Command{Intent: IntentConnect})
	assert.Equal(t, domain.StateConnected, f.app.Session().State())
	require.Len(t, f.rec.Sessions, 1)
	assert.Equal(t, "0.5000 ETH", f.rec.Sessions[0].FormattedBalance())

	f.run(t, Command{Intent: IntentLoad})
	assert.Equal(t, domain.StateLedgerBound, f.app.Session().State())

	f.run(t, Command{Intent: IntentRegister}, Command{Intent: IntentBalance})
	cash, ok := f.rec.LastCash()
	require.True(t, ok)
	assert.Equal(t, "1000", cash.Cash.String())

	f.run(t, Command{Intent: IntentBuy, Symbol: "aapl", Quantity: 10})

	assert.Equal(t, "Successfully purchased 10 shares of AAPL!", f.rec.Statuses[len(f.rec.Statuses)-1].Message)
	rows, ok := f.rec.LastHoldings()
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Symbol("AAPL"), rows[0].Symbol)
	assert.Equal(t, uint64(10), rows[0].Quantity)
	assert.Equal(t, "800", rows[0].Value.String())

	cash, _ = f.rec.LastCash()
	assert.Equal(t, "200", cash.Cash.String())
	assert.Equal(t, []bool{true, false, true, false}, f.rec.Busy)
}

func TestLoadAnnouncesSymbols(t *testing.T) {
	f := newFixture(t)
	f.run(t, Command{Intent: IntentConnect}, Command{Intent: IntentLoad})

	var messages []string
	for _, s := range f.rec.Statuses {
		messages = append(messages, s.Message)
	}
	assert.Contains(t, messages, "Ledger loaded! 7 stocks available.")
	quotes, ok := f.rec.LastQuotes()
	require.True(t, ok)
	assert.Len(t, quotes, 7)
}

func TestLoadWithoutSymbols(t *testing.T) {
	f := newFixture(t)
	f.fake.FailCall("getSymbols", errors.New("method not found"))
	f.run(t, Command{Intent: IntentConnect}, Command{Intent: IntentLoad})

	quotes, ok := f.rec.LastQuotes()
	require.True(t, ok)
	require.Len(t, quotes, len(domain.FallbackSymbols))
	for _, q := range quotes {
		assert.True(t, q.Estimated)
	}
}

func TestLoadRequiresConnection(t *testing.T) {
	f := newFixture(t)

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentLoad})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, "Please connect your wallet first.", f.rec.LastStatus().Message)
}

func TestRegisterTwice(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	require.EqualValues(t, ledgertest.SeedCash, f.fake.Cash(trader))

	f.run(t, Command{Intent: IntentRegister})

	assert.Equal(t, domain.Success("You are already registered!"), f.rec.LastStatus())
	assert.EqualValues(t, ledgertest.SeedCash, f.fake.Cash(trader))
	cash, _ := f.rec.LastCash()
	assert.Equal(t, "1000", cash.Cash.String())
}

func TestMutationRequiresLedger(t *testing.T) {
	f := newFixture(t)
	f.run(t, Command{Intent: IntentConnect})

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentReset})
	assert.ErrorIs(t, err, domain.ErrLedgerNotLoaded)
	assert.Equal(t, "Please load the ledger first.", f.rec.LastStatus().Message)
	assert.Zero(t, f.fake.Transacts("resetPortfolio"))
}

func TestBuyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		target error
		msg    string
	}{
		{"zero quantity", Command{Intent: IntentBuy, Symbol: "AAPL"}, domain.ErrInvalidQuantity, "Please enter a valid quantity."},
		{"negative quantity", Command{Intent: IntentBuy, Symbol: "AAPL", Quantity: -3}, domain.ErrInvalidQuantity, "Please enter a valid quantity."},
		{"missing symbol", Command{Intent: IntentSell, Symbol: " ", Quantity: 1}, domain.ErrInvalidSymbol, "Please select a stock symbol."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ready(t)

			err := f.app.Dispatch(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.msg, f.rec.LastStatus().Message)
			assert.Zero(t, f.fake.Transacts("buyStock"))
			assert.Zero(t, f.fake.Transacts("sellStock"))
			assert.Equal(t, domain.StateLedgerBound, f.app.Session().State())
		})
	}
}

func TestBuyInsufficientCash(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentBuy, Symbol: "NFLX", Quantity: 10})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "Not enough virtual cash! You need to deposit more funds.", f.rec.LastStatus().Message)
}

func TestSellMoreThanHeld(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentSell, Symbol: "TSLA", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
	assert.Equal(t, "Not enough TSLA shares to sell.", f.rec.LastStatus().Message)
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.run(t, Command{Intent: IntentDeposit})
	assert.Equal(t, domain.Success("Successfully deposited $500!"), f.rec.Statuses[len(f.rec.Statuses)-1])
	assert.EqualValues(t, ledgertest.SeedCash+500, f.fake.Cash(trader))
}

func TestDepositUnavailable(t *testing.T) {
	f := newFixture(t)
	f.fake.WithoutDeposit()
	f.ready(t)

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentDeposit})
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)
	assert.Equal(t, "Deposit function not available in this ledger.", f.rec.LastStatus().Message)
}

func TestResetShowsEmptyPortfolio(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.run(t, Command{Intent: IntentBuy, Symbol: "AAPL", Quantity: 2})

	f.run(t, Command{Intent: IntentReset})

	rows, ok := f.rec.LastHoldings()
	require.True(t, ok)
	assert.Empty(t, rows)
	cash, _ := f.rec.LastCash()
	assert.Equal(t, "1000", cash.Cash.String())
}

func TestDisplayUpdatesOnlyAfterSettlement(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	cashBefore, holdingsBefore := f.rec.Counts()

	f.fake.Hold()
	errc := make(chan error, 1)
	go func() {
		errc <- f.app.Dispatch(context.Background(), Command{Intent: IntentBuy, Symbol: "AAPL", Quantity: 1})
	}()

	require.Eventually(t, func() bool {
		return f.rec.LastStatus().Message == "Transaction submitted. Waiting for confirmation..."
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, domain.StatePending, f.app.Session().State())
	cash, holdings := f.rec.Counts()
	assert.Equal(t, cashBefore, cash)
	assert.Equal(t, holdingsBefore, holdings)

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentSell, Symbol: "AAPL", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrOperationPending)
	assert.Zero(t, f.fake.Transacts("sellStock"))

	f.fake.Release()
	require.NoError(t, <-errc)

	cash, holdings = f.rec.Counts()
	assert.Greater(t, cash, cashBefore)
	assert.Greater(t, holdings, holdingsBefore)
	assert.Equal(t, domain.StateLedgerBound, f.app.Session().State())
}

func TestRevertedSettlement(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.fake.RevertOnSettle("buyStock")

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentBuy, Symbol: "AAPL", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrExecutionReverted)
	assert.Equal(t, "Transaction failed. The ledger rejected the purchase.", f.rec.LastStatus().Message)
	assert.Zero(t, f.fake.Quantity(trader, "AAPL"))
}

func TestJournalRecordsPhases(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	require.Len(t, f.journal.records, 2)
	submitted, settled := f.journal.records[0], f.journal.records[1]
	assert.Equal(t, domain.TxSubmitted, submitted.Phase)
	assert.Equal(t, domain.TxSettled, settled.Phase)
	assert.Equal(t, "register", submitted.Operation)
	assert.Equal(t, submitted.CorrelationID, settled.CorrelationID)
	assert.NotEmpty(t, submitted.CorrelationID)
	assert.Equal(t, submitted.Hash, settled.Hash)
	assert.Equal(t, trader.Hex(), settled.Account)
	assert.NotZero(t, settled.Block)
}

func TestChainChangeInvalidatesHandle(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.run(t, Command{Intent: IntentSwitchNetwork, ChainID: 5})

	assert.Equal(t, domain.StateConnected, f.app.Session().State())
	s, ok := f.app.Session().Session()
	require.True(t, ok)
	assert.Equal(t, uint64(5), s.ChainID)
	assert.Equal(t, "Switched to chain 5 network.", f.rec.LastStatus().Message)

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentRefresh})
	assert.ErrorIs(t, err, domain.ErrLedgerNotLoaded)
}

func TestChainChangeResyncsSession(t *testing.T) {
	for _, tc := range []struct {
		name      string
		steps     []Command
		dropped   bool
		lastState domain.ClientState
	}{
		{name: "connected", steps: []Command{{Intent: IntentConnect}}, lastState: domain.StateConnected},
		{name: "ledger bound", steps: []Command{{Intent: IntentConnect}, {Intent: IntentLoad}}, dropped: true, lastState: domain.StateConnected},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.provider.balances = map[uint64]*big.Int{5: big.NewInt(2e18)}
			f.run(t, tc.steps...)
			shown := len(f.rec.Sessions)

			f.run(t, Command{Intent: IntentSwitchNetwork, ChainID: 5})

			require.Len(t, f.rec.Sessions, shown+1)
			last := f.rec.Sessions[len(f.rec.Sessions)-1]
			assert.Equal(t, uint64(5), last.ChainID)
			assert.Equal(t, "2.0000 ETH", last.FormattedBalance())
			assert.Equal(t, trader.Hex(), last.Account)

			s, ok := f.app.Session().Session()
			require.True(t, ok)
			assert.Equal(t, last, s)
			assert.Equal(t, tc.lastState, f.app.Session().State())

			var noticed bool
			for _, st := range f.rec.Statuses {
				noticed = noticed || st.Message == "Network changed. Load the ledger again."
			}
			assert.Equal(t, tc.dropped, noticed)
		})
	}
}

func TestAccountChangeDropsLedger(t *testing.T) {
	f := newFixture(t)
	f.run(t, Command{Intent: IntentConnect}, Command{Intent: IntentLoad})
	other := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")

	// the active account did not change
	f.provider.setAccounts([]common.Address{trader, other})
	assert.Equal(t, domain.StateLedgerBound, f.app.Session().State())

	f.provider.setAccounts([]common.Address{other})
	assert.Equal(t, domain.StateConnected, f.app.Session().State())
	s, ok := f.app.Session().Session()
	require.True(t, ok)
	assert.Equal(t, other.Hex(), s.Account)
	assert.Equal(t, domain.Info("Account changed. Load the ledger again."), f.rec.LastStatus())

	f.provider.setAccounts(nil)
	assert.Equal(t, domain.StateDisconnected, f.app.Session().State())
	assert.False(t, f.rec.Sessions[len(f.rec.Sessions)-1].Connected)
}

func TestConnectWithoutEndpoint(t *testing.T) {
	f := newFixture(t)
	f.provider.connErr = errors.Wrap(domain.ErrNoEndpoint, "chain 11155111")

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentConnect})
	assert.ErrorIs(t, err, domain.ErrNoEndpoint)
	assert.Equal(t,
		domain.Failure("No RPC endpoint configured for this network. Set STOCKDESK_RPC_URL or add one under networks in the config."),
		f.rec.LastStatus())
}

func TestSwitchNetworkRejected(t *testing.T) {
	f := newFixture(t)
	f.provider.switchErr = errors.New("user rejected")

	err := f.app.Dispatch(context.Background(), Command{Intent: IntentSwitchNetwork})
	assert.ErrorIs(t, err, domain.ErrNetworkSwitchRejected)
	assert.Equal(t, domain.Failure("Failed to switch network."), f.rec.LastStatus())
}

func TestConnectWithoutWallet(t *testing.T) {
	rec := &displaytest.Recorder{}
	app := NewApp(nil, rec, ledgertest.Address)

	err := app.Dispatch(context.Background(), Command{Intent: IntentConnect})
	assert.ErrorIs(t, err, domain.ErrWalletUnavailable)
	assert.Equal(t, domain.SeverityError, rec.LastStatus().Severity)
	assert.Equal(t, domain.StateDisconnected, app.Session().State())
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.run(t, Command{Intent: IntentRefresh})
	assert.Equal(t, domain.Success("Portfolio refreshed!"), f.rec.LastStatus())
}

func TestUnknownIntent(t *testing.T) {
	f := newFixture(t)
	err := f.app.Dispatch(context.Background(), Command{Intent: "teleport"})
	require.Error(t, err)
	assert.Equal(t, domain.SeverityError, f.rec.LastStatus().Severity)
}
