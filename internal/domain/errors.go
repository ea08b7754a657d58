package domain

import "github.com/pkg/errors"

var (
	ErrWalletUnavailable     = errors.New("wallet unavailable")
	ErrNoAccountsAuthorized  = errors.New("no accounts authorized")
	ErrNoEndpoint            = errors.New("no rpc endpoint configured")
	ErrEndpointUnreachable   = errors.New("rpc endpoint unreachable")
	ErrNetworkSwitchRejected = errors.New("network switch rejected")
	ErrNotConnected          = errors.New("wallet not connected")
	ErrLedgerNotLoaded       = errors.New("ledger not loaded")
	ErrAlreadyRegistered     = errors.New("already registered")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientHoldings  = errors.New("insufficient holdings")
	ErrExecutionReverted     = errors.New("execution reverted")
	ErrFeatureUnavailable    = errors.New("feature unavailable")
	ErrQueryFailed           = errors.New("query failed")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInvalidSymbol         = errors.New("symbol is required")
	ErrOperationPending      = errors.New("another operation is pending")
)
