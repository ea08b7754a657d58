package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvPrivateKey, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(DefaultLedgerAddress), cfg.LedgerAddress)
	assert.Equal(t, uint64(11155111), cfg.ChainID)
	assert.Equal(t, uint64(11155111), cfg.SwitchChainID)
	assert.Equal(t, int64(500), cfg.DepositAmount)
	assert.Equal(t, int64(1000), cfg.SeedCash)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Networks)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvPrivateKey, "0xabc")
	path := writeConfig(t, `
ledger_address: "0x00000000000000000000000000000000000000aa"
chain_id: "5"
networks:
  "5": http://localhost:8545
  "11155111": https://rpc.sepolia.org
deposit_amount: "250"
web:
  addr: ":9000"
  domains: [desk.example.com]
journal_dir: /tmp/journal
log_level: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0xaa"), cfg.LedgerAddress)
	assert.Equal(t, uint64(5), cfg.ChainID)
	assert.Equal(t, uint64(5), cfg.SwitchChainID)
	assert.Equal(t, "http://localhost:8545", cfg.Networks[5])
	assert.Equal(t, []uint64{5, 11155111}, cfg.ChainIDs())
	assert.Equal(t, int64(250), cfg.DepositAmount)
	assert.Equal(t, ":9000", cfg.WebAddr)
	assert.Equal(t, []string{"desk.example.com"}, cfg.WebDomains)
	assert.Equal(t, "/tmp/journal", cfg.JournalDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0xabc", cfg.PrivateKey)
}

func TestLoadEnvEndpoint(t *testing.T) {
	t.Setenv(EnvRPCURL, "https://rpc.example")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example", cfg.Networks[DefaultChainID])
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad address", `ledger_address: "nope"`},
		{"bad chain", `chain_id: "sepolia"`},
		{"bad network id", "networks:\n  main: http://x"},
		{"bad deposit", `deposit_amount: "-1"`},
		{"bad level", `log_level: loud`},
		{"not yaml", `: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvPrivateKey, "")
	cfg := Default()
	cfg.Networks[DefaultChainID] = "https://rpc.sepolia.org"
	cfg.JournalDir = "wal"
	cfg.PrivateKey = "secret"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Networks, loaded.Networks)
	assert.Equal(t, "wal", loaded.JournalDir)
	assert.Equal(t, cfg.LedgerAddress, loaded.LedgerAddress)
}
