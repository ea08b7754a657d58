package setup

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal"
	"github.com/vadiminshakov/stockdesk/internal/domain"
)

const quitChoice = "quit"

type dispatcher interface {
	Dispatch(ctx context.Context, cmd internal.Command) error
}

// QuoteSource returns the symbols currently shown in the selector.
type QuoteSource func() []domain.PriceQuote

var intentLabels = map[internal.Intent]string{
	internal.IntentConnect:       "Connect wallet",
	internal.IntentLoad:          "Load ledger",
	internal.IntentRegister:      "Register",
	internal.IntentBuy:           "Buy shares",
	internal.IntentSell:          "Sell shares",
	internal.IntentDeposit:       "Deposit virtual cash",
	internal.IntentReset:         "Reset portfolio",
	internal.IntentSwitchNetwork: "Switch network",
	internal.IntentRefresh:       "Refresh portfolio",
	internal.IntentBalance:       "Check balance",
}

// RunShell reads intents from an interactive menu until the user quits or
// ctx is done. Dispatch errors are already shown as status and do not stop
// the loop. chains lists the networks offered by switch-network, with
// switchChainID preselected.
func RunShell(ctx context.Context, d dispatcher, quotes QuoteSource, switchChainID uint64, chains []uint64) error {
	for ctx.Err() == nil {
		var choice string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("What next?").
					Options(menuOptions()...).
					Value(&choice),
			),
		).Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if choice == quitChoice {
			return nil
		}

		cmd, err := askCommand(internal.Intent(choice), quotes, switchChainID, chains)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			return err
		}

		_ = d.Dispatch(ctx, cmd)
	}
	return ctx.Err()
}

func menuOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(internal.Intents)+1)
	for _, intent := range internal.Intents {
		opts = append(opts, huh.NewOption(intentLabels[intent], string(intent)))
	}
	return append(opts, huh.NewOption("Quit", quitChoice))
}

func askCommand(intent internal.Intent, quotes QuoteSource, switchChainID uint64, chains []uint64) (internal.Command, error) {
	switch intent {
	case internal.IntentBuy, internal.IntentSell:
		var symbol, qty string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Stock").
					Options(symbolOptions(quotes)...).
					Value(&symbol),
				huh.NewInput().
					Title("Quantity").
					Value(&qty).
					Validate(validatePositiveInt),
			),
		).Run()
		if err != nil {
			return internal.Command{}, err
		}
		return buildCommand(intent, symbol, qty, "")
	case internal.IntentSwitchNetwork:
		chain := strconv.FormatUint(switchChainID, 10)
		field := huh.Field(huh.NewInput().
			Title("Chain ID").
			Value(&chain).
			Validate(validateChainID))
		if len(chains) > 0 {
			field = huh.NewSelect[string]().
				Title("Network").
				Options(chainOptions(chains, switchChainID)...).
				Value(&chain)
		}
		err := huh.NewForm(huh.NewGroup(field)).Run()
		if err != nil {
			return internal.Command{}, err
		}
		return buildCommand(intent, "", "", chain)
	default:
		return internal.Command{Intent: intent}, nil
	}
}

func symbolOptions(quotes QuoteSource) []huh.Option[string] {
	var list []domain.PriceQuote
	if quotes != nil {
		list = quotes()
	}
	if len(list) == 0 {
		for _, s := range domain.FallbackSymbols {
			list = append(list, domain.PriceQuote{Symbol: s, Estimated: true})
		}
	}

	opts := make([]huh.Option[string], 0, len(list))
	for _, q := range list {
		label := q.Symbol.String()
		if !q.Price.IsZero() {
			label = fmt.Sprintf("%s - $%s", q.Symbol, q.Price.String())
			if q.Estimated {
				label += " (est.)"
			}
		}
		opts = append(opts, huh.NewOption(label, q.Symbol.String()))
	}
	return opts
}

// chainOptions lists the configured chains, adding switchChainID when it has
// no endpoint of its own.
func chainOptions(chains []uint64, switchChainID uint64) []huh.Option[string] {
	if !slices.Contains(chains, switchChainID) {
		chains = append([]uint64{switchChainID}, chains...)
	}

	opts := make([]huh.Option[string], 0, len(chains))
	for _, id := range chains {
		label := fmt.Sprintf("chain %d", id)
		if id == internal.SepoliaChainID {
			label = fmt.Sprintf("Sepolia (%d)", id)
		}
		opts = append(opts, huh.NewOption(label, strconv.FormatUint(id, 10)).Selected(id == switchChainID))
	}
	return opts
}

// buildCommand converts form answers into a command.
func buildCommand(intent internal.Intent, symbol, qty, chain string) (internal.Command, error) {
	cmd := internal.Command{Intent: intent, Symbol: domain.Symbol(strings.TrimSpace(symbol))}

	if qty = strings.TrimSpace(qty); qty != "" {
		n, err := strconv.ParseInt(qty, 10, 64)
		if err != nil {
			return internal.Command{}, errors.Wrapf(domain.ErrInvalidQuantity, "%q", qty)
		}
		cmd.Quantity = n
	}
	if chain = strings.TrimSpace(chain); chain != "" {
		id, err := strconv.ParseUint(chain, 10, 64)
		if err != nil {
			return internal.Command{}, errors.Errorf("invalid chain id %q", chain)
		}
		cmd.ChainID = id
	}
	return cmd, nil
}
