package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"go.uber.org/zap"
)

// DialFunc opens a connection to a JSON-RPC endpoint.
type DialFunc func(ctx context.Context, url string) (Backend, error)

// DialEthclient dials url with ethclient.
func DialEthclient(ctx context.Context, url string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// KeyWallet is a Provider backed by local secp256k1 keys and a table of chain endpoints.
type KeyWallet struct {
	mu        sync.RWMutex
	keys      []*ecdsa.PrivateKey
	endpoints map[uint64]string
	chainID   uint64
	backend   Backend
	dial      DialFunc
	logger    *zap.Logger

	listeners        []func(uint64)
	accountListeners []func([]common.Address)
}

// KeyWalletOption configures a KeyWallet.
type KeyWalletOption func(*KeyWallet)

// WithDialer replaces the endpoint dialer.
func WithDialer(dial DialFunc) KeyWalletOption {
	return func(w *KeyWallet) {
		w.dial = dial
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) KeyWalletOption {
	return func(w *KeyWallet) {
		w.logger = logger
	}
}

// NewKeyWallet creates a wallet that starts on chainID. endpoints maps chain ids to RPC urls.
func NewKeyWallet(chainID uint64, endpoints map[uint64]string, opts ...KeyWalletOption) *KeyWallet {
	w := &KeyWallet{
		endpoints: make(map[uint64]string, len(endpoints)),
		chainID:   chainID,
		dial:      DialEthclient,
		logger:    zap.NewNop(),
	}
	for id, url := range endpoints {
		w.endpoints[id] = url
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddPrivateKey adds a hex encoded private key, with or without the 0x prefix.
func (w *KeyWallet) AddPrivateKey(hexKey string) (common.Address, error) {
	key := strings.TrimSpace(hexKey)
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "decode private key")
	}

	return w.addKey(privateKey), nil
}

// AddKeystore decrypts a keystore JSON file and adds its key.
func (w *KeyWallet) AddKeystore(path, passphrase string) (common.Address, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "read keystore file")
	}

	key, err := keystore.DecryptKey(payload, passphrase)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "decrypt keystore file")
	}

	return w.addKey(key.PrivateKey), nil
}

func (w *KeyWallet) addKey(key *ecdsa.PrivateKey) common.Address {
	addr := crypto.PubkeyToAddress(key.PublicKey)

	w.mu.Lock()
	for _, k := range w.keys {
		if crypto.PubkeyToAddress(k.PublicKey) == addr {
			w.mu.Unlock()
			return addr
		}
	}
	w.keys = append(w.keys, key)
	accounts := w.accounts()
	listeners := append([]func([]common.Address){}, w.accountListeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(accounts)
	}
	return addr
}

// accounts must be called with mu held.
func (w *KeyWallet) accounts() []common.Address {
	accounts := make([]common.Address, 0, len(w.keys))
	for _, key := range w.keys {
		accounts = append(accounts, crypto.PubkeyToAddress(key.PublicKey))
	}
	return accounts
}

// RequestAccounts implements Provider. It connects to the active chain if needed.
func (w *KeyWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if _, err := w.ensureBackend(ctx); err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.accounts(), nil
}

// SwitchChain implements Provider.
func (w *KeyWallet) SwitchChain(ctx context.Context, chainID uint64) error {
	w.mu.RLock()
	current, connected := w.chainID, w.backend != nil
	url, known := w.endpoints[chainID]
	w.mu.RUnlock()

	if connected && current == chainID {
		return nil
	}
	if !known {
		return errors.Wrapf(domain.ErrNetworkSwitchRejected, "no endpoint configured for chain %d", chainID)
	}

	backend, err := w.open(ctx, chainID, url)
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.backend
	w.backend = backend
	w.chainID = chainID
	listeners := append([]func(uint64){}, w.listeners...)
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}

	w.logger.Info("switched chain", zap.Uint64("from", current), zap.Uint64("to", chainID))

	for _, fn := range listeners {
		fn(chainID)
	}
	return nil
}

// ChainID implements Provider.
func (w *KeyWallet) ChainID() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

// BalanceAt implements Provider.
func (w *KeyWallet) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	backend, err := w.ensureBackend(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrap(err, "get account balance")
	}
	return balance, nil
}

// Backend implements Provider.
func (w *KeyWallet) Backend() (Backend, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.backend == nil {
		return nil, domain.ErrNotConnected
	}
	return w.backend, nil
}

// Transactor implements Provider.
func (w *KeyWallet) Transactor(account common.Address) (*bind.TransactOpts, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, key := range w.keys {
		if crypto.PubkeyToAddress(key.PublicKey) == account {
			return bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(w.chainID))
		}
	}
	return nil, errors.Wrapf(domain.ErrNoAccountsAuthorized, "no key for %s", account.Hex())
}

// OnChainChanged implements Provider.
func (w *KeyWallet) OnChainChanged(fn func(chainID uint64)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// OnAccountsChanged implements Provider. fn receives the full account list
// after a key was added.
func (w *KeyWallet) OnAccountsChanged(fn func(accounts []common.Address)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accountListeners = append(w.accountListeners, fn)
}

// Close closes the chain connection.
func (w *KeyWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.backend != nil {
		w.backend.Close()
		w.backend = nil
	}
}

func (w *KeyWallet) ensureBackend(ctx context.Context) (Backend, error) {
	w.mu.RLock()
	backend, chainID := w.backend, w.chainID
	url, known := w.endpoints[chainID]
	w.mu.RUnlock()

	if backend != nil {
		return backend, nil
	}
	if !known {
		return nil, errors.Wrapf(domain.ErrNoEndpoint, "chain %d", chainID)
	}

	backend, err := w.open(ctx, chainID, url)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrEndpointUnreachable, "%v", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.backend != nil {
		backend.Close()
		return w.backend, nil
	}
	w.backend = backend
	return backend, nil
}

// open dials url and checks that the endpoint serves chainID.
func (w *KeyWallet) open(ctx context.Context, chainID uint64, url string) (Backend, error) {
	backend, err := w.dial(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrNetworkSwitchRejected, "dial chain %d: %v", chainID, err)
	}

	got, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, errors.Wrapf(domain.ErrNetworkSwitchRejected, "query chain id: %v", err)
	}
	if !got.IsUint64() || got.Uint64() != chainID {
		backend.Close()
		return nil, errors.Wrapf(domain.ErrNetworkSwitchRejected, "endpoint serves chain %s, want %d", got, chainID)
	}

	return backend, nil
}
