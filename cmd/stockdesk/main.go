// Command stockdesk trades on the simulated stock ledger contract from the
// terminal. It connects a local key to an Ethereum JSON-RPC endpoint, binds
// the ledger and dispatches one intent per invocation, or runs an
// interactive shell and a live web dashboard.
//
// Usage:
//
//	stockdesk [-config stockdesk.yaml] <command> [flags]
//
// Environment variables:
//
//	STOCKDESK_PRIVATE_KEY        hex private key of the trading account
//	STOCKDESK_KEYSTORE_PASSWORD  password of the configured keystore file
//	STOCKDESK_RPC_URL            JSON-RPC endpoint of the configured chain
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "path to yaml config")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range intentCommands() {
		commander.Register(c, "trading")
	}
	commander.Register(&shellCmd{}, "interactive")
	commander.Register(&serveCmd{}, "interactive")
	commander.Register(&journalCmd{}, "")
	commander.Register(&setupCmd{}, "")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
