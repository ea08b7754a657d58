package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal/domain"
)

const revertPrefix = "execution reverted"

// RevertError is a ledger-side rejection of a mutating operation.
// It unwraps to one of the domain sentinel errors.
type RevertError struct {
	Op     string
	Reason string
	kind   error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.kind, e.Reason)
}

func (e *RevertError) Unwrap() error {
	return e.kind
}

// classify maps a transaction error onto the domain taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	reason := revertReason(err)
	text := strings.ToLower(reason + " " + err.Error())

	switch {
	case strings.Contains(text, "already registered"):
		return &RevertError{Op: op, Reason: reason, kind: domain.ErrAlreadyRegistered}
	case containsAny(text, "not enough cash", "insufficient cash", "insufficient virtual"):
		return &RevertError{Op: op, Reason: reason, kind: domain.ErrInsufficientFunds}
	case containsAny(text, "not enough shares", "insufficient shares", "insufficient holdings", "not enough stock"):
		return &RevertError{Op: op, Reason: reason, kind: domain.ErrInsufficientHoldings}
	case strings.Contains(text, revertPrefix):
		return revertFor(op, reason)
	}

	return errors.Wrapf(err, "%s", op)
}

// revertFor returns the generic rejection for op. Deposits are optional on the
// ledger, so any rejection means the feature is missing.
func revertFor(op, reason string) error {
	if op == methodDeposit {
		return &RevertError{Op: op, Reason: reason, kind: domain.ErrFeatureUnavailable}
	}
	return &RevertError{Op: op, Reason: reason, kind: domain.ErrExecutionReverted}
}

// revertReason extracts the Error(string) reason from the node response.
func revertReason(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	if idx := strings.Index(msg, revertPrefix+": "); idx >= 0 {
		return strings.TrimSpace(msg[idx+len(revertPrefix)+2:])
	}

	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
