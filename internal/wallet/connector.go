package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"go.uber.org/zap"
)

// weiDecimals is the exponent between wei and ether.
const weiDecimals = 18

type sessionView interface {
	ShowSession(domain.Session)
}

// Connector runs the wallet handshake.
type Connector struct {
	provider Provider
	view     sessionView
	logger   *zap.Logger
}

// NewConnector creates a connector. provider may be nil when no wallet is installed.
func NewConnector(provider Provider, view sessionView, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{provider: provider, view: view, logger: logger}
}

// Provider returns the wallet provider, nil when none is installed.
func (c *Connector) Provider() Provider {
	return c.provider
}

// Connect requests account access and returns a session for the first authorized account.
func (c *Connector) Connect(ctx context.Context) (domain.Session, error) {
	if c.provider == nil {
		return domain.Session{}, domain.ErrWalletUnavailable
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		return domain.Session{}, errors.Wrap(err, "request accounts")
	}
	if len(accounts) == 0 {
		return domain.Session{}, domain.ErrNoAccountsAuthorized
	}

	session, err := c.derive(ctx, accounts[0])
	if err != nil {
		return domain.Session{}, err
	}
	c.logger.Info("wallet connected",
		zap.String("account", session.Account),
		zap.Uint64("chain_id", session.ChainID),
		zap.String("balance", session.FormattedBalance()))

	if c.view != nil {
		c.view.ShowSession(session)
	}

	return session, nil
}

// Resync re-derives the session of account on the wallet's active chain
// after a wallet event and shows it. When the balance query fails the
// session is still shown, with a zero balance, and the error is returned.
func (c *Connector) Resync(ctx context.Context, account common.Address) (domain.Session, error) {
	if c.provider == nil {
		return domain.Session{}, domain.ErrWalletUnavailable
	}

	session, err := c.derive(ctx, account)
	if err != nil {
		session = domain.NewSession(account.Hex(), c.provider.ChainID(), decimal.Zero)
	}
	c.logger.Info("wallet session resynced",
		zap.String("account", session.Account),
		zap.Uint64("chain_id", session.ChainID),
		zap.Error(err))

	if c.view != nil {
		c.view.ShowSession(session)
	}
	return session, err
}

func (c *Connector) derive(ctx context.Context, account common.Address) (domain.Session, error) {
	wei, err := c.provider.BalanceAt(ctx, account)
	if err != nil {
		return domain.Session{}, errors.Wrap(err, "query network balance")
	}
	return domain.NewSession(account.Hex(), c.provider.ChainID(), decimal.NewFromBigInt(wei, -weiDecimals)), nil
}

// SwitchNetwork asks the wallet to move to chainID.
func (c *Connector) SwitchNetwork(ctx context.Context, chainID uint64) error {
	if c.provider == nil {
		return domain.ErrWalletUnavailable
	}

	if err := c.provider.SwitchChain(ctx, chainID); err != nil {
		if errors.Is(err, domain.ErrNetworkSwitchRejected) {
			return err
		}
		return errors.Wrapf(domain.ErrNetworkSwitchRejected, "%v", err)
	}
	return nil
}
