package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/ledger"
	"go.uber.org/zap"
)

// mutation describes the status texts and the call of a mutating operation.
type mutation struct {
	op        string
	validate  func() error
	start     string
	submitted string
	success   string
	// failure prefixes unexpected errors, e.g. "Buy failed".
	failure string
	// explain maps known errors to a dedicated message.
	explain map[error]string
	submit  func(ctx context.Context, h *ledger.Handle) (*ledger.Submission, error)
	// recover handles an error as a non-failure when it returns true.
	recover func(ctx context.Context, h *ledger.Handle, err error) bool
}

// preconditionMessages explain rejections that happen before any remote call.
var preconditionMessages = map[error]string{
	domain.ErrNotConnected:     "Please connect your wallet first.",
	domain.ErrLedgerNotLoaded:  "Please load the ledger first.",
	domain.ErrOperationPending: "Another transaction is still pending. Please wait for it to settle.",
	domain.ErrInvalidSymbol:    "Please select a stock symbol.",
	domain.ErrInvalidQuantity:  "Please enter a valid quantity.",
}

func describe(prefix string, err error, explain map[error]string) string {
	for _, table := range []map[error]string{explain, preconditionMessages} {
		for target, msg := range table {
			if errors.Is(err, target) {
				return msg
			}
		}
	}
	return prefix + ": " + err.Error()
}

// mutate runs the two-phase flow: submit, report submission, wait for
// settlement, report the outcome and refresh. Display state other than the
// status bar is untouched until settlement.
func (a *App) mutate(ctx context.Context, m mutation) error {
	h, done, err := a.session.BeginMutation(m.op)
	if err != nil {
		a.view.ShowStatus(domain.Failure(describe(m.failure, err, m.explain)))
		return err
	}
	defer done()

	if m.validate != nil {
		if err := m.validate(); err != nil {
			a.view.ShowStatus(domain.Failure(describe(m.failure, err, m.explain)))
			return err
		}
	}

	a.view.ShowBusy(true)
	defer a.view.ShowBusy(false)

	id := a.newID()
	account := h.Account()
	log := a.logger.With(zap.String("op", m.op), zap.String("correlation_id", id))

	a.view.ShowStatus(domain.Info(m.start))

	sub, err := m.submit(ctx, h)
	if err != nil {
		a.record(id, m.op, account, common.Hash{}, domain.TxFailed, 0, err)
		return a.mutationFailed(ctx, h, m, err)
	}
	log.Info("submitted", zap.String("tx", sub.Hash().Hex()))
	a.record(id, m.op, account, sub.Hash(), domain.TxSubmitted, 0, nil)
	a.view.ShowStatus(domain.Info(m.submitted))

	receipt, err := sub.Wait(ctx)
	if err != nil {
		var block uint64
		if receipt != nil && receipt.BlockNumber != nil {
			block = receipt.BlockNumber.Uint64()
		}
		a.record(id, m.op, account, sub.Hash(), domain.TxFailed, block, err)
		return a.mutationFailed(ctx, h, m, err)
	}

	block := receipt.BlockNumber.Uint64()
	log.Info("settled", zap.String("tx", sub.Hash().Hex()), zap.Uint64("block", block))
	a.record(id, m.op, account, sub.Hash(), domain.TxSettled, block, nil)

	a.view.ShowStatus(domain.Success(m.success))
	if err := a.sync.RefreshAll(ctx, h, account); err != nil {
		log.Warn("refresh after settlement incomplete", zap.Error(err))
	}
	return nil
}

func (a *App) mutationFailed(ctx context.Context, h *ledger.Handle, m mutation, err error) error {
	if m.recover != nil && m.recover(ctx, h, err) {
		return nil
	}
	a.view.ShowStatus(domain.Failure(describe(m.failure, err, m.explain)))
	return err
}

func (a *App) connect(ctx context.Context, _ Command) error {
	a.view.ShowStatus(domain.Info("Connecting to wallet..."))

	session, err := a.connector.Connect(ctx)
	if err != nil {
		a.view.ShowStatus(domain.Failure(describe("Connection failed", err, map[error]string{
			domain.ErrWalletUnavailable:    "No wallet available. Configure a private key or keystore to continue.",
			domain.ErrNoAccountsAuthorized: "No accounts found. Please unlock your wallet.",
			domain.ErrNoEndpoint:           "No RPC endpoint configured for this network. Set STOCKDESK_RPC_URL or add one under networks in the config.",
			domain.ErrEndpointUnreachable:  "Could not reach the RPC endpoint. Check your network settings.",
		})))
		return err
	}

	a.session.Connect(session)
	a.view.ShowStatus(domain.Success("Successfully connected to wallet! Load the ledger to continue."))
	return nil
}

func (a *App) load(ctx context.Context, _ Command) error {
	session, ok := a.session.Session()
	if !ok {
		a.view.ShowStatus(domain.Failure(preconditionMessages[domain.ErrNotConnected]))
		return domain.ErrNotConnected
	}

	a.view.ShowStatus(domain.Info("Loading ledger..."))

	account := common.HexToAddress(session.Account)
	h, err := a.bind(ctx, a.ledgerAddress, a.connector.Provider(), account)
	if err != nil {
		a.view.ShowStatus(domain.Failure("Failed to load ledger: " + err.Error()))
		return errors.Wrap(err, "bind ledger")
	}
	if err := a.session.Bind(h); err != nil {
		a.view.ShowStatus(domain.Failure(describe("Failed to load ledger", err, nil)))
		return err
	}
	a.logger.Info("ledger bound", zap.String("address", h.Address().Hex()), zap.String("account", h.Account().Hex()))

	if symbols, err := h.Symbols(ctx); err != nil {
		a.logger.Warn("ledger symbol probe failed", zap.Error(err))
		a.view.ShowStatus(domain.Info("Ledger loaded but some functions may not work."))
	} else {
		a.view.ShowStatus(domain.Success(fmt.Sprintf("Ledger loaded! %d stocks available.", len(symbols))))
	}

	if err := a.sync.RefreshAll(ctx, h, account); err != nil {
		a.logger.Warn("initial refresh incomplete", zap.Error(err))
	}
	return nil
}

func (a *App) register(ctx context.Context, _ Command) error {
	return a.mutate(ctx, mutation{
		op:        string(IntentRegister),
		start:     "Registering your account...",
		submitted: "Registration submitted. Waiting for confirmation...",
		success:   fmt.Sprintf("Successfully registered! You now have $%d virtual cash.", a.seedCash),
		failure:   "Registration failed",
		submit: func(ctx context.Context, h *ledger.Handle) (*ledger.Submission, error) {
			return h.Register(ctx)
		},
		recover: func(ctx context.Context, h *ledger.Handle, err error) bool {
			if !errors.Is(err, domain.ErrAlreadyRegistered) {
				return false
			}
			a.view.ShowStatus(domain.Success("You are already registered!"))
			_ = a.sync.RefreshBalance(ctx, h, h.Account())
			return true
		},
	})
}

func (a *App) buy(ctx context.Context, cmd Command) error {
	symbol := normalizeSymbol(cmd.Symbol)
	return a.mutate(ctx, mutation{
		op:        string(IntentBuy),
		validate:  func() error { return validateOrder(symbol, cmd.Quantity) },
		start:     fmt.Sprintf("Buying %d shares of %s...", cmd.Quantity, symbol),
		submitted: "Transaction submitted. Waiting for confirmation...",
		success:   fmt.Sprintf("Successfully purchased %d shares of %s!", cmd.Quantity, symbol),
		failure:   "Buy failed",
		explain: map[error]string{
			domain.ErrInsufficientFunds: "Not enough virtual cash! You need to deposit more funds.",
			domain.ErrExecutionReverted: "Transaction failed. The ledger rejected the purchase.",
		},
		submit: func(ctx context.Context, h *ledger.Handle) (*ledger.Submission, error) {
			return h.Buy(ctx, symbol, cmd.Quantity)
		},
	})
}

func (a *App) sell(ctx context.Context, cmd Command) error {
	symbol := normalizeSymbol(cmd.Symbol)
	return a.mutate(ctx, mutation{
		op:        string(IntentSell),
		validate:  func() error { return validateOrder(symbol, cmd.Quantity) },
		start:     fmt.Sprintf("Selling %d shares of %s...", cmd.Quantity, symbol),
		submitted: "Transaction submitted. Waiting for confirmation...",
		success:   fmt.Sprintf("Successfully sold %d shares of %s!", cmd.Quantity, symbol),
		failure:   "Sell failed",
		explain: map[error]string{
			domain.ErrInsufficientHoldings: fmt.Sprintf("Not enough %s shares to sell.", symbol),
		},
		submit: func(ctx context.Context, h *ledger.Handle) (*ledger.Submission, error) {
			return h.Sell(ctx, symbol, cmd.Quantity)
		},
	})
}

func (a *App) deposit(ctx context.Context, _ Command) error {
	return a.mutate(ctx, mutation{
		op:        string(IntentDeposit),
		start:     fmt.Sprintf("Depositing $%d virtual cash...", a.depositAmount),
		submitted: "Deposit transaction submitted. Waiting for confirmation...",
		success:   fmt.Sprintf("Successfully deposited $%d!", a.depositAmount),
		failure:   "Deposit failed",
		explain: map[error]string{
			domain.ErrFeatureUnavailable: "Deposit function not available in this ledger.",
		},
		submit: func(ctx context.Context, h *ledger.Handle) (*ledger.Submission, error) {
			return h.Deposit(ctx, a.depositAmount)
		},
	})
}

func (a *App) reset(ctx context.Context, _ Command) error {
	return a.mutate(ctx, mutation{
		op:        string(IntentReset),
		start:     "Resetting your portfolio...",
		submitted: "Reset transaction submitted. Waiting for confirmation...",
		success:   "Portfolio reset successfully!",
		failure:   "Reset failed",
		submit: func(ctx context.Context, h *ledger.Handle) (*ledger.Submission, error) {
			return h.Reset(ctx)
		},
	})
}

func (a *App) switchNetwork(ctx context.Context, cmd Command) error {
	target := cmd.ChainID
	if target == 0 {
		target = a.switchChainID
	}

	if err := a.connector.SwitchNetwork(ctx, target); err != nil {
		a.logger.Warn("network switch rejected", zap.Uint64("chain_id", target), zap.Error(err))
		a.view.ShowStatus(domain.Failure("Failed to switch network."))
		return err
	}

	a.view.ShowStatus(domain.Success(fmt.Sprintf("Switched to %s network.", chainName(target))))
	return nil
}

func (a *App) refresh(ctx context.Context, _ Command) error {
	h, err := a.session.Handle()
	if err != nil {
		a.view.ShowStatus(domain.Failure(describe("Refresh failed", err, nil)))
		return err
	}

	if err := a.sync.RefreshAll(ctx, h, h.Account()); err != nil {
		return err
	}
	a.view.ShowStatus(domain.Success("Portfolio refreshed!"))
	return nil
}

func (a *App) balance(ctx context.Context, _ Command) error {
	h, err := a.session.Handle()
	if err != nil {
		a.view.ShowStatus(domain.Failure(describe("Balance check failed", err, nil)))
		return err
	}
	return a.sync.RefreshBalance(ctx, h, h.Account())
}

func normalizeSymbol(s domain.Symbol) domain.Symbol {
	return domain.Symbol(strings.ToUpper(strings.TrimSpace(s.String())))
}

func validateOrder(symbol domain.Symbol, qty int64) error {
	if symbol == "" {
		return domain.ErrInvalidSymbol
	}
	if qty <= 0 {
		return errors.Wrapf(domain.ErrInvalidQuantity, "quantity %d", qty)
	}
	return nil
}
