package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/setup"
	"github.com/vadiminshakov/stockdesk/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultSetupPath = "stockdesk.yaml"

// intentCmd runs a single intent after the steps it depends on.
type intentCmd struct {
	intent   internal.Intent
	synopsis string
	symbol   string
	qty      int64
	chain    uint64
}

func intentCommands() []subcommands.Command {
	return []subcommands.Command{
		&intentCmd{intent: internal.IntentConnect, synopsis: "connect the wallet and show the account"},
		&intentCmd{intent: internal.IntentLoad, synopsis: "bind the ledger and show the portfolio"},
		&intentCmd{intent: internal.IntentRegister, synopsis: "register the account on the ledger"},
		&intentCmd{intent: internal.IntentBuy, synopsis: "buy shares"},
		&intentCmd{intent: internal.IntentSell, synopsis: "sell shares"},
		&intentCmd{intent: internal.IntentDeposit, synopsis: "deposit virtual cash"},
		&intentCmd{intent: internal.IntentReset, synopsis: "reset the portfolio to the starting cash"},
		&intentCmd{intent: internal.IntentSwitchNetwork, synopsis: "switch the wallet to another chain"},
		&intentCmd{intent: internal.IntentRefresh, synopsis: "refresh cash, holdings and prices"},
		&intentCmd{intent: internal.IntentBalance, synopsis: "show cash and portfolio value"},
	}
}

func (c *intentCmd) Name() string     { return string(c.intent) }
func (c *intentCmd) Synopsis() string { return c.synopsis }
func (c *intentCmd) Usage() string {
	switch c.intent {
	case internal.IntentBuy, internal.IntentSell:
		return fmt.Sprintf("stockdesk %s -symbol <symbol> -qty <n>\n\n  %s.\n", c.intent, c.synopsis)
	case internal.IntentSwitchNetwork:
		return fmt.Sprintf("stockdesk %s [-chain <id>]\n\n  %s, Sepolia by default.\n", c.intent, c.synopsis)
	default:
		return fmt.Sprintf("stockdesk %s\n\n  %s.\n", c.intent, c.synopsis)
	}
}

func (c *intentCmd) SetFlags(f *flag.FlagSet) {
	switch c.intent {
	case internal.IntentBuy, internal.IntentSell:
		f.StringVar(&c.symbol, "symbol", "", "Stock symbol, e.g. AAPL.")
		f.Int64Var(&c.qty, "qty", 0, "Number of shares.")
	case internal.IntentSwitchNetwork:
		f.Uint64Var(&c.chain, "chain", 0, "Target chain id. Defaults to the configured switch chain.")
	}
}

// steps returns the intents to run before c.intent in a fresh process.
func (c *intentCmd) steps() []internal.Command {
	var steps []internal.Command
	switch c.intent {
	case internal.IntentConnect:
	case internal.IntentLoad, internal.IntentSwitchNetwork:
		steps = append(steps, internal.Command{Intent: internal.IntentConnect})
	default:
		steps = append(steps,
			internal.Command{Intent: internal.IntentConnect},
			internal.Command{Intent: internal.IntentLoad})
	}
	return append(steps, internal.Command{
		Intent:   c.intent,
		Symbol:   domain.Symbol(c.symbol),
		Quantity: c.qty,
		ChainID:  c.chain,
	})
}

func (c *intentCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if err := rt.run(ctx, c.steps()...); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type shellCmd struct{}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "trade interactively" }
func (*shellCmd) Usage() string {
	return `stockdesk shell

  Connects the wallet, loads the ledger and opens an interactive menu.
`
}
func (*shellCmd) SetFlags(*flag.FlagSet) {}

func (*shellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if err := runShell(ctx, rt); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func runShell(ctx context.Context, rt *runtime) error {
	// failures are on the status bar, the shell lets the user retry
	_ = rt.run(ctx,
		internal.Command{Intent: internal.IntentConnect},
		internal.Command{Intent: internal.IntentLoad})

	quotes := func() []domain.PriceQuote { return rt.feed.Snapshot().View.Quotes }
	return setup.RunShell(ctx, rt.app, quotes, rt.cfg.SwitchChainID, rt.cfg.ChainIDs())
}

type serveCmd struct {
	headless bool
	refresh  time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the web dashboard" }
func (*serveCmd) Usage() string {
	return `stockdesk serve [-headless] [-refresh <duration>]

  Serves the live dashboard on the configured address, with automatic TLS when
  web domains are configured. Opens the interactive shell unless -headless.
`
}

func (s *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.headless, "headless", false, "Do not open the interactive shell.")
	f.DurationVar(&s.refresh, "refresh", time.Minute, "Refresh interval in headless mode.")
}

func (s *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var journal interface {
		RecordsAfter(uint64) ([]domain.TxRecordEntry, error)
	}
	if rt.journal != nil {
		journal = rt.journal
	}
	srv := web.NewServer(rt.cfg.WebAddr, rt.feed, journal, rt.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(rt.cfg.WebDomains) > 0 {
			return srv.StartWithAutoTLS(ctx, rt.cfg.WebDomains, rt.cfg.CertCacheDir)
		}
		return srv.Start(ctx)
	})
	g.Go(func() error {
		defer cancel()
		if s.headless {
			return s.refreshLoop(ctx, rt)
		}
		return runShell(ctx, rt)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (s *serveCmd) refreshLoop(ctx context.Context, rt *runtime) error {
	_ = rt.run(ctx,
		internal.Command{Intent: internal.IntentConnect},
		internal.Command{Intent: internal.IntentLoad})

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := rt.app.Dispatch(ctx, internal.Command{Intent: internal.IntentRefresh}); err != nil {
				rt.logger.Debug("periodic refresh failed", zap.Error(err))
			}
		}
	}
}

type journalCmd struct {
	after uint64
}

func (*journalCmd) Name() string     { return "journal" }
func (*journalCmd) Synopsis() string { return "list journaled ledger transactions" }
func (*journalCmd) Usage() string {
	return `stockdesk journal [-after <index>]

  Lists the transaction journal. Requires journal_dir in the config.
`
}

func (j *journalCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&j.after, "after", 0, "Only list entries after this index.")
}

func (j *journalCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if rt.journal == nil {
		fmt.Fprintln(os.Stderr, "Error: journal_dir is not configured.")
		return subcommands.ExitUsageError
	}

	entries, err := rt.journal.RecordsAfter(j.after)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, e := range entries {
		r := e.Record
		line := fmt.Sprintf("%d\t%s\t%s\t%-9s\t%s\t%s", e.Index, r.Timestamp.Format(time.RFC3339), r.CorrelationID, r.Phase, r.Operation, r.Hash)
		if r.Block > 0 {
			line += fmt.Sprintf("\tblock %d", r.Block)
		}
		if r.Error != "" {
			line += "\t" + r.Error
		}
		fmt.Println(line)
	}
	return subcommands.ExitSuccess
}

type setupCmd struct{}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "write a config file interactively" }
func (*setupCmd) Usage() string {
	return `stockdesk [-config <file>] setup

  Runs the configuration wizard and writes the answers to the -config file,
  stockdesk.yaml by default.
`
}
func (*setupCmd) SetFlags(*flag.FlagSet) {}

func (*setupCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := *configPath
	if path == "" {
		path = defaultSetupPath
	}
	if err := setup.RunWizard(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
