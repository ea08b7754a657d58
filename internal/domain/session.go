// Package domain defines the data structures shared by the wallet, ledger and display layers.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// balancePlaces is the number of decimals shown for the native network balance.
const balancePlaces = 4

// Session is the authorized wallet account bound to the running client.
type Session struct {
	// Connected is set once the wallet authorized at least one account.
	Connected bool `json:"connected"`
	// Account hex address of the first authorized account.
	Account string `json:"account"`
	// ChainID network the account was authorized on.
	ChainID uint64 `json:"chain_id"`
	// NetworkBalance native balance of the account (ETH on Ethereum networks).
	NetworkBalance decimal.Decimal `json:"network_balance"`
}

// NewSession creates a connected session.
func NewSession(account string, chainID uint64, balance decimal.Decimal) Session {
	return Session{
		Connected:      true,
		Account:        account,
		ChainID:        chainID,
		NetworkBalance: balance,
	}
}

// ShortAccount returns the abbreviated account address, e.g. 0x1234ab...cdef01.
func (s Session) ShortAccount() string {
	if len(s.Account) <= 14 {
		return s.Account
	}
	return fmt.Sprintf("%s...%s", s.Account[:8], s.Account[len(s.Account)-6:])
}

// FormattedBalance returns the network balance with four decimals and the ETH suffix.
func (s Session) FormattedBalance() string {
	return s.NetworkBalance.StringFixed(balancePlaces) + " ETH"
}
