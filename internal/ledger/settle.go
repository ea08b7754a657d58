package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/pkg/retrier"
	"go.uber.org/zap"
)

const (
	receiptPollInitial = 1 * time.Second
	receiptPollMax     = 12 * time.Second
)

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReceiptPoller waits for receipts by polling the node with backoff.
type ReceiptPoller struct {
	backend receiptReader
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewReceiptPoller creates a poller that retries until the receipt is found.
func NewReceiptPoller(backend receiptReader, logger *zap.Logger, opts ...retrier.Option) *ReceiptPoller {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := []retrier.Option{
		retrier.WithInitialInterval(receiptPollInitial),
		retrier.WithMaxInterval(receiptPollMax),
		retrier.WithMaxRetries(retrier.Unlimited),
		retrier.WithRetryIf(func(err error) bool {
			return errors.Is(err, ethereum.NotFound)
		}),
	}

	return &ReceiptPoller{
		backend: backend,
		retrier: retrier.New(append(base, opts...)...),
		logger:  logger,
	}
}

// WaitMined implements Settler.
func (p *ReceiptPoller) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	hash := tx.Hash()
	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (*types.Receipt, error) {
		receipt, err := p.backend.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				p.logger.Debug("transaction not yet mined", zap.String("tx", hash.Hex()))
			}
			return nil, err
		}
		return receipt, nil
	})
}
