// Package wallet connects the client to an account and a chain endpoint.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is a chain connection able to serve contract bindings,
// receipts and balances. *ethclient.Client implements it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Provider is the capability-request protocol of a wallet.
type Provider interface {
	// RequestAccounts returns the accounts the wallet authorizes, first one is active.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// SwitchChain moves the wallet to chainID.
	SwitchChain(ctx context.Context, chainID uint64) error
	// ChainID returns the active chain.
	ChainID() uint64
	// BalanceAt returns the native balance of account in wei.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	// Backend returns the connection to the active chain.
	Backend() (Backend, error)
	// Transactor returns a signer for account on the active chain.
	Transactor(account common.Address) (*bind.TransactOpts, error)
	// OnChainChanged registers fn to be called after the active chain changed.
	OnChainChanged(fn func(chainID uint64))
	// OnAccountsChanged registers fn to be called after the authorized accounts changed.
	OnAccountsChanged(fn func(accounts []common.Address))
}
