// Package setup holds the interactive terminal flows: the configuration
// wizard and the trading shell.
package setup

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vadiminshakov/stockdesk/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// wizardAnswers are the raw strings collected by the wizard forms.
type wizardAnswers struct {
	ledgerAddress string
	chainID       string
	rpcURL        string
	keystoreFile  string
	depositAmount string
	journalDir    string
	webAddr       string
	logLevel      string
}

func defaultAnswers() wizardAnswers {
	d := config.Default()
	return wizardAnswers{
		ledgerAddress: d.LedgerAddress.Hex(),
		chainID:       strconv.FormatUint(d.ChainID, 10),
		depositAmount: strconv.FormatInt(d.DepositAmount, 10),
		webAddr:       d.WebAddr,
		logLevel:      d.LogLevel,
	}
}

func step(title string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("STOCKDESK CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunWizard asks for the configuration and writes it to path.
func RunWizard(path string) error {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("STOCKDESK CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point stockdesk at your ledger and wallet.\n"))

	fmt.Println(stepStyle.Render("STEP 1: LEDGER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ledger contract address").
				Value(&a.ledgerAddress).
				Validate(validateAddress),
			huh.NewInput().
				Title("Chain ID").
				Description("11155111 is Sepolia").
				Value(&a.chainID).
				Validate(validateChainID),
			huh.NewInput().
				Title("JSON-RPC endpoint").
				Description("Can also be supplied via " + config.EnvRPCURL).
				Value(&a.rpcURL).
				Validate(validateEndpoint),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: WALLET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Keystore file").
				Description("Leave empty to use " + config.EnvPrivateKey + ". The password is read from " + config.EnvKeystorePassword).
				Value(&a.keystoreFile),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 3: EXTRAS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Deposit amount").
				Description("Virtual cash credited per deposit").
				Value(&a.depositAmount).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Transaction journal directory").
				Description("Leave empty to disable the journal").
				Value(&a.journalDir),
			huh.NewInput().
				Title("Dashboard address").
				Value(&a.webAddr),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Info", "info"),
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.logLevel),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(a.summary()))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✔ Configuration saved to %s", path)))
	return nil
}

func (a wizardAnswers) config() (config.Config, error) {
	cfg := config.Default()
	cfg.LedgerAddress = common.HexToAddress(a.ledgerAddress)

	chainID, err := strconv.ParseUint(strings.TrimSpace(a.chainID), 10, 64)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid chain id: %w", err)
	}
	cfg.ChainID = chainID
	cfg.SwitchChainID = chainID

	if u := strings.TrimSpace(a.rpcURL); u != "" {
		cfg.Networks[chainID] = u
	}

	deposit, err := strconv.ParseInt(strings.TrimSpace(a.depositAmount), 10, 64)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid deposit amount: %w", err)
	}
	cfg.DepositAmount = deposit

	cfg.KeystoreFile = strings.TrimSpace(a.keystoreFile)
	cfg.JournalDir = strings.TrimSpace(a.journalDir)
	if addr := strings.TrimSpace(a.webAddr); addr != "" {
		cfg.WebAddr = addr
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	return cfg, cfg.Validate()
}

func (a wizardAnswers) summary() string {
	wallet := a.keystoreFile
	if wallet == "" {
		wallet = "$" + config.EnvPrivateKey
	}
	journal := a.journalDir
	if journal == "" {
		journal = "disabled"
	}
	return fmt.Sprintf("Ledger: %s\nChain: %s\nEndpoint: %s\nWallet: %s\nDeposit: $%s\nJournal: %s\n",
		a.ledgerAddress, a.chainID, a.rpcURL, wallet, a.depositAmount, journal)
}

func validateAddress(s string) error {
	if !common.IsHexAddress(strings.TrimSpace(s)) {
		return fmt.Errorf("must be a 0x-prefixed 20 byte hex address")
	}
	return nil
}

func validateChainID(s string) error {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEndpoint(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func validatePositiveInt(s string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}
