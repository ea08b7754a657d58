package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Submission is a mutating operation accepted by the node and not yet settled.
type Submission struct {
	op      string
	tx      *types.Transaction
	settler Settler
	logger  *zap.Logger
}

// Op returns the contract method the submission invokes.
func (s *Submission) Op() string {
	return s.op
}

// Hash returns the transaction hash.
func (s *Submission) Hash() common.Hash {
	return s.tx.Hash()
}

// Wait blocks until the transaction is settled. There is no timeout other
// than the context: the wait relies on the network making progress.
// A reverted receipt is reported as a RevertError.
func (s *Submission) Wait(ctx context.Context) (*types.Receipt, error) {
	receipt, err := s.settler.WaitMined(ctx, s.tx)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s settlement", s.op)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.logger.Info("ledger transaction reverted",
			zap.String("op", s.op),
			zap.String("tx", s.tx.Hash().Hex()))
		return receipt, revertFor(s.op, "")
	}

	s.logger.Info("ledger transaction settled",
		zap.String("op", s.op),
		zap.String("tx", s.tx.Hash().Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return receipt, nil
}
