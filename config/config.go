// Package config loads the stockdesk configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvPrivateKey       = "STOCKDESK_PRIVATE_KEY"
	EnvKeystorePassword = "STOCKDESK_KEYSTORE_PASSWORD"
	EnvRPCURL           = "STOCKDESK_RPC_URL"
)

// Defaults.
const (
	DefaultLedgerAddress = "0xa29ac49e928b1ccbefcc14fc3231197e679a8344"
	DefaultChainID       = 11155111
	DefaultDepositAmount = 500
	DefaultSeedCash      = 1000
	DefaultWebAddr       = ":8080"
	DefaultCertCacheDir  = "cert-cache"
	DefaultLogLevel      = "info"
	DefaultStyle         = "auto"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

type Config struct {
	LedgerAddress common.Address
	// ChainID is the chain the wallet starts on.
	ChainID uint64
	// SwitchChainID is the default target of switch-network.
	SwitchChainID uint64
	// Networks maps chain ids to JSON-RPC endpoints.
	Networks         map[uint64]string
	PrivateKey       string
	KeystoreFile     string
	KeystorePassword string
	DepositAmount    int64
	SeedCash         int64
	WebAddr          string
	WebDomains       []string
	CertCacheDir     string
	// JournalDir enables the transaction journal when set.
	JournalDir string
	LogLevel   string
	// Style is the glamour style of terminal tables.
	Style string
}

type webTmp struct {
	Addr         string   `yaml:"addr,omitempty"`
	Domains      []string `yaml:"domains,omitempty"`
	CertCacheDir string   `yaml:"cert_cache_dir,omitempty"`
}

type ConfigTmp struct {
	LedgerAddress string            `yaml:"ledger_address,omitempty"`
	ChainID       string            `yaml:"chain_id,omitempty"`
	SwitchChainID string            `yaml:"switch_chain_id,omitempty"`
	Networks      map[string]string `yaml:"networks,omitempty"`
	KeystoreFile  string            `yaml:"keystore_file,omitempty"`
	DepositAmount string            `yaml:"deposit_amount,omitempty"`
	SeedCash      string            `yaml:"seed_cash,omitempty"`
	Web           webTmp            `yaml:"web,omitempty"`
	JournalDir    string            `yaml:"journal_dir,omitempty"`
	LogLevel      string            `yaml:"log_level,omitempty"`
	Style         string            `yaml:"style,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LedgerAddress: common.HexToAddress(DefaultLedgerAddress),
		ChainID:       DefaultChainID,
		SwitchChainID: DefaultChainID,
		Networks:      map[uint64]string{},
		DepositAmount: DefaultDepositAmount,
		SeedCash:      DefaultSeedCash,
		WebAddr:       DefaultWebAddr,
		CertCacheDir:  DefaultCertCacheDir,
		LogLevel:      DefaultLogLevel,
		Style:         DefaultStyle,
	}
}

// Load reads the YAML file at path (skipped when path is empty) on top of
// the defaults and applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		var tmp ConfigTmp
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, errors.Wrap(err, "parse config")
		}
		if err := tmp.apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c ConfigTmp) apply(cfg *Config) error {
	if c.LedgerAddress != "" {
		if !common.IsHexAddress(c.LedgerAddress) {
			return fmt.Errorf("incorrect 'ledger_address' param in yaml config: %s", c.LedgerAddress)
		}
		cfg.LedgerAddress = common.HexToAddress(c.LedgerAddress)
	}

	var err error
	if c.ChainID != "" {
		if cfg.ChainID, err = strconv.ParseUint(c.ChainID, 10, 64); err != nil {
			return fmt.Errorf("incorrect 'chain_id' param in yaml config (must be an integer), error: %w", err)
		}
		cfg.SwitchChainID = cfg.ChainID
	}
	if c.SwitchChainID != "" {
		if cfg.SwitchChainID, err = strconv.ParseUint(c.SwitchChainID, 10, 64); err != nil {
			return fmt.Errorf("incorrect 'switch_chain_id' param in yaml config (must be an integer), error: %w", err)
		}
	}
	for id, url := range c.Networks {
		chainID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return fmt.Errorf("incorrect chain id %q in 'networks' of yaml config, error: %w", id, err)
		}
		cfg.Networks[chainID] = url
	}
	if c.DepositAmount != "" {
		if cfg.DepositAmount, err = strconv.ParseInt(c.DepositAmount, 10, 64); err != nil {
			return fmt.Errorf("incorrect 'deposit_amount' param in yaml config (must be an integer), error: %w", err)
		}
	}
	if c.SeedCash != "" {
		if cfg.SeedCash, err = strconv.ParseInt(c.SeedCash, 10, 64); err != nil {
			return fmt.Errorf("incorrect 'seed_cash' param in yaml config (must be an integer), error: %w", err)
		}
	}

	if c.KeystoreFile != "" {
		cfg.KeystoreFile = c.KeystoreFile
	}
	if c.Web.Addr != "" {
		cfg.WebAddr = c.Web.Addr
	}
	if len(c.Web.Domains) > 0 {
		cfg.WebDomains = c.Web.Domains
	}
	if c.Web.CertCacheDir != "" {
		cfg.CertCacheDir = c.Web.CertCacheDir
	}
	if c.JournalDir != "" {
		cfg.JournalDir = c.JournalDir
	}
	if c.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(c.LogLevel)
	}
	if c.Style != "" {
		cfg.Style = c.Style
	}
	return nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(EnvPrivateKey); key != "" {
		cfg.PrivateKey = key
	}
	if pass := os.Getenv(EnvKeystorePassword); pass != "" {
		cfg.KeystorePassword = pass
	}
	if url := os.Getenv(EnvRPCURL); url != "" {
		cfg.Networks[cfg.ChainID] = url
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ChainID == 0 {
		return errors.New("chain_id must be set")
	}
	if c.DepositAmount <= 0 {
		return fmt.Errorf("deposit_amount must be positive, got %d", c.DepositAmount)
	}
	if c.SeedCash < 0 {
		return fmt.Errorf("seed_cash must not be negative, got %d", c.SeedCash)
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Save writes cfg to path as YAML. Secrets are never written.
func Save(path string, cfg Config) error {
	tmp := ConfigTmp{
		LedgerAddress: cfg.LedgerAddress.Hex(),
		ChainID:       strconv.FormatUint(cfg.ChainID, 10),
		SwitchChainID: strconv.FormatUint(cfg.SwitchChainID, 10),
		KeystoreFile:  cfg.KeystoreFile,
		DepositAmount: strconv.FormatInt(cfg.DepositAmount, 10),
		SeedCash:      strconv.FormatInt(cfg.SeedCash, 10),
		Web: webTmp{
			Addr:         cfg.WebAddr,
			Domains:      cfg.WebDomains,
			CertCacheDir: cfg.CertCacheDir,
		},
		JournalDir: cfg.JournalDir,
		LogLevel:   cfg.LogLevel,
		Style:      cfg.Style,
	}
	if len(cfg.Networks) > 0 {
		tmp.Networks = make(map[string]string, len(cfg.Networks))
		for id, url := range cfg.Networks {
			tmp.Networks[strconv.FormatUint(id, 10)] = url
		}
	}

	out, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrap(os.WriteFile(path, out, 0o600), "write config")
}

// ChainIDs returns the configured chain ids in ascending order.
func (c Config) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(c.Networks))
	for id := range c.Networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
