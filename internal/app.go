package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal/display"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/ledger"
	"github.com/vadiminshakov/stockdesk/internal/services/synchronizer"
	"github.com/vadiminshakov/stockdesk/internal/wallet"
	"go.uber.org/zap"
)

// Intent names a user request.
type Intent string

const (
	IntentConnect       Intent = "connect"
	IntentLoad          Intent = "load"
	IntentRegister      Intent = "register"
	IntentBuy           Intent = "buy"
	IntentSell          Intent = "sell"
	IntentDeposit       Intent = "deposit"
	IntentReset         Intent = "reset"
	IntentSwitchNetwork Intent = "switch-network"
	IntentRefresh       Intent = "refresh"
	IntentBalance       Intent = "balance"
)

// Intents lists every intent in menu order.
var Intents = []Intent{
	IntentConnect, IntentLoad, IntentRegister, IntentBuy, IntentSell,
	IntentDeposit, IntentReset, IntentSwitchNetwork, IntentRefresh, IntentBalance,
}

// SepoliaChainID is the chain the ledger is deployed on.
const SepoliaChainID uint64 = 11155111

const (
	defaultDepositAmount = 500
	defaultSeedCash      = 1000
	walletEventTimeout   = 10 * time.Second
)

// Command is a dispatched user request.
type Command struct {
	Intent   Intent
	Symbol   domain.Symbol
	Quantity int64
	// ChainID is the switch-network target, zero selects the configured one.
	ChainID uint64
}

// Journal records the phases of ledger transactions.
type Journal interface {
	Append(rec domain.TxRecord) error
}

// Binder creates a ledger handle for account on the wallet's active chain.
type Binder func(ctx context.Context, address common.Address, provider wallet.Provider, account common.Address) (*ledger.Handle, error)

type handler func(ctx context.Context, cmd Command) error

// App dispatches user intents against the wallet, the ledger and the display.
type App struct {
	connector     *wallet.Connector
	view          display.Display
	sync          *synchronizer.Synchronizer
	session       *SessionContext
	ledgerAddress common.Address
	switchChainID uint64
	depositAmount int64
	seedCash      int64
	journal       Journal
	bind          Binder
	newID         func() string
	now           func() time.Time
	logger        *zap.Logger
	handlers      map[Intent]handler
}

// Option configures an App.
type Option func(*App)

// WithJournal records every submission and settlement to j.
func WithJournal(j Journal) Option {
	return func(a *App) { a.journal = j }
}

// WithBinder replaces the function creating ledger handles.
func WithBinder(b Binder) Option {
	return func(a *App) { a.bind = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithDepositAmount sets the virtual cash credited by deposit.
func WithDepositAmount(amount int64) Option {
	return func(a *App) { a.depositAmount = amount }
}

// WithSeedCash sets the cash amount announced after registration.
func WithSeedCash(amount int64) Option {
	return func(a *App) { a.seedCash = amount }
}

// WithSwitchChain sets the default switch-network target.
func WithSwitchChain(chainID uint64) Option {
	return func(a *App) { a.switchChainID = chainID }
}

// NewApp creates an application for the ledger at ledgerAddress. provider
// may be nil when no wallet is configured.
func NewApp(provider wallet.Provider, view display.Display, ledgerAddress common.Address, opts ...Option) *App {
	a := &App{
		view:          view,
		session:       NewSessionContext(),
		ledgerAddress: ledgerAddress,
		switchChainID: SepoliaChainID,
		depositAmount: defaultDepositAmount,
		seedCash:      defaultSeedCash,
		newID:         func() string { return uuid.NewString() },
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bind == nil {
		a.bind = walletBinder(a.logger)
	}
	a.sync = synchronizer.New(view, a.logger)
	a.connector = wallet.NewConnector(provider, view, a.logger)

	a.handlers = map[Intent]handler{
		IntentConnect:       a.connect,
		IntentLoad:          a.load,
		IntentRegister:      a.register,
		IntentBuy:           a.buy,
		IntentSell:          a.sell,
		IntentDeposit:       a.deposit,
		IntentReset:         a.reset,
		IntentSwitchNetwork: a.switchNetwork,
		IntentRefresh:       a.refresh,
		IntentBalance:       a.balance,
	}

	if provider != nil {
		provider.OnChainChanged(a.chainChanged)
		provider.OnAccountsChanged(a.accountsChanged)
	}

	return a
}

// Session returns the shared session context.
func (a *App) Session() *SessionContext {
	return a.session
}

// Dispatch runs the handler for cmd. Every failure is also surfaced as an
// error status; it never leaves the session context half-updated.
func (a *App) Dispatch(ctx context.Context, cmd Command) error {
	h, ok := a.handlers[cmd.Intent]
	if !ok {
		err := errors.Errorf("unknown command %q", cmd.Intent)
		a.view.ShowStatus(domain.Failure(err.Error()))
		return err
	}

	a.logger.Debug("dispatch", zap.String("intent", string(cmd.Intent)))
	if err := h(ctx, cmd); err != nil {
		a.logger.Info("command failed", zap.String("intent", string(cmd.Intent)), zap.Error(err))
		return err
	}
	return nil
}

func walletBinder(logger *zap.Logger) Binder {
	return func(_ context.Context, address common.Address, provider wallet.Provider, account common.Address) (*ledger.Handle, error) {
		backend, err := provider.Backend()
		if err != nil {
			return nil, err
		}
		auth, err := provider.Transactor(account)
		if err != nil {
			return nil, err
		}
		return ledger.Bind(address, backend, auth, logger)
	}
}

func (a *App) chainChanged(chainID uint64) {
	a.logger.Info("chain changed", zap.Uint64("chain_id", chainID))
	s, ok := a.session.Session()
	if !ok {
		return
	}
	a.resync(common.HexToAddress(s.Account), "Network changed. Load the ledger again.")
}

func (a *App) accountsChanged(accounts []common.Address) {
	a.logger.Info("accounts changed", zap.Int("count", len(accounts)))
	s, ok := a.session.Session()
	if !ok {
		return
	}
	if len(accounts) == 0 {
		a.session.Disconnect()
		a.view.ShowSession(domain.Session{})
		a.view.ShowStatus(domain.Info("Wallet disconnected. Connect again to continue."))
		return
	}
	if accounts[0].Hex() == s.Account {
		return
	}
	a.resync(accounts[0], "Account changed. Load the ledger again.")
}

// resync re-derives the session for account on the active chain and drops
// the ledger handle. notice is shown when a bound ledger was dropped.
func (a *App) resync(account common.Address, notice string) {
	ctx, cancel := context.WithTimeout(context.Background(), walletEventTimeout)
	defer cancel()

	s, err := a.connector.Resync(ctx, account)
	if err != nil {
		a.logger.Warn("network balance unavailable after wallet event", zap.Error(err))
	}
	if a.session.Resync(s) {
		a.view.ShowStatus(domain.Info(notice))
	}
}

func (a *App) record(id, op string, account common.Address, hash common.Hash, phase domain.TxPhase, block uint64, cause error) {
	if a.journal == nil {
		return
	}
	rec := domain.TxRecord{
		Timestamp:     a.now().UTC(),
		CorrelationID: id,
		Operation:     op,
		Account:       account.Hex(),
		Phase:         phase,
		Block:         block,
	}
	if hash != (common.Hash{}) {
		rec.Hash = hash.Hex()
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := a.journal.Append(rec); err != nil {
		a.logger.Warn("journal append failed", zap.String("op", op), zap.Error(err))
	}
}

func chainName(chainID uint64) string {
	if chainID == SepoliaChainID {
		return "Sepolia"
	}
	return fmt.Sprintf("chain %d", chainID)
}
