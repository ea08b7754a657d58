package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/config"
	"github.com/vadiminshakov/stockdesk/internal"
	"github.com/vadiminshakov/stockdesk/internal/display"
	"github.com/vadiminshakov/stockdesk/internal/events"
	"github.com/vadiminshakov/stockdesk/internal/storage/txjournal"
	"github.com/vadiminshakov/stockdesk/internal/wallet"
	"go.uber.org/zap"
)

const feedBuffer = 64

// runtime is the wired application for one invocation.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	app     *internal.App
	feed    *display.Feed
	wallet  *wallet.KeyWallet
	journal *txjournal.WALStore
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func newRuntime(out io.Writer) (*runtime, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}

	provider, err := rt.openWallet()
	if err != nil {
		logger.Sync()
		return nil, err
	}

	term, err := display.NewTerminal(out, display.WithStyle(cfg.Style))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.feed = display.NewFeed(events.NewBroadcaster(feedBuffer))

	opts := []internal.Option{
		internal.WithLogger(logger),
		internal.WithDepositAmount(cfg.DepositAmount),
		internal.WithSeedCash(cfg.SeedCash),
		internal.WithSwitchChain(cfg.SwitchChainID),
	}
	if cfg.JournalDir != "" {
		rt.journal, err = txjournal.NewWALStore(cfg.JournalDir)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts = append(opts, internal.WithJournal(rt.journal))
	}

	rt.app = internal.NewApp(provider, display.Fanout{term, rt.feed}, cfg.LedgerAddress, opts...)
	return rt, nil
}

// openWallet returns nil when no key is configured, so that connect reports
// the wallet as unavailable.
func (rt *runtime) openWallet() (wallet.Provider, error) {
	if rt.cfg.PrivateKey == "" && rt.cfg.KeystoreFile == "" {
		rt.logger.Warn("no private key or keystore configured")
		return nil, nil
	}

	w := wallet.NewKeyWallet(rt.cfg.ChainID, rt.cfg.Networks, wallet.WithLogger(rt.logger))
	if rt.cfg.PrivateKey != "" {
		if _, err := w.AddPrivateKey(rt.cfg.PrivateKey); err != nil {
			return nil, errors.Wrap(err, "load private key")
		}
	}
	if rt.cfg.KeystoreFile != "" {
		if _, err := w.AddKeystore(rt.cfg.KeystoreFile, rt.cfg.KeystorePassword); err != nil {
			return nil, errors.Wrap(err, "load keystore")
		}
	}
	rt.wallet = w
	return w, nil
}

// run dispatches cmds in order and stops at the first failure.
func (rt *runtime) run(ctx context.Context, cmds ...internal.Command) error {
	for _, cmd := range cmds {
		if err := rt.app.Dispatch(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (rt *runtime) Close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.logger.Warn("close tx journal", zap.Error(err))
		}
	}
	if rt.wallet != nil {
		rt.wallet.Close()
	}
	_ = rt.logger.Sync()
}
