package internal

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/ledger"
)

// SessionContext holds the session and ledger handle shared by all operations.
// Only the connect/load flows and wallet events change it.
type SessionContext struct {
	mu        sync.RWMutex
	connected bool
	session   domain.Session
	handle    *ledger.Handle
	pending   string
}

// NewSessionContext returns a disconnected session context.
func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

// State derives the client state.
func (c *SessionContext) State() domain.ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state()
}

func (c *SessionContext) state() domain.ClientState {
	switch {
	case !c.connected:
		return domain.StateDisconnected
	case c.handle == nil:
		return domain.StateConnected
	case c.pending != "":
		return domain.StatePending
	default:
		return domain.StateLedgerBound
	}
}

// Session returns the current session and whether one is established.
func (c *SessionContext) Session() (domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session, c.connected
}

// Handle returns the bound ledger handle.
func (c *SessionContext) Handle() (*ledger.Handle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, domain.ErrNotConnected
	}
	if c.handle == nil {
		return nil, domain.ErrLedgerNotLoaded
	}
	return c.handle, nil
}

// Connect establishes s and drops any previously bound handle.
func (c *SessionContext) Connect(s domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.session = s
	c.handle = nil
}

// Bind attaches the ledger handle to the connected session.
func (c *SessionContext) Bind(h *ledger.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return domain.ErrNotConnected
	}
	if c.pending != "" {
		return errors.Wrap(domain.ErrOperationPending, c.pending)
	}
	c.handle = h
	return nil
}

// Resync replaces the session after a wallet event and drops the ledger
// handle, which was bound for the previous chain or account. It returns true
// when a handle was dropped and does nothing while disconnected.
func (c *SessionContext) Resync(s domain.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false
	}
	c.session = s
	dropped := c.handle != nil
	c.handle = nil
	return dropped
}

// Disconnect forgets the session.
func (c *SessionContext) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.session = domain.Session{}
	c.handle = nil
	c.pending = ""
}

// BeginMutation reserves the session for op. At most one mutating operation
// may be in flight; the returned func releases the reservation.
func (c *SessionContext) BeginMutation(op string) (*ledger.Handle, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.connected:
		return nil, nil, domain.ErrNotConnected
	case c.handle == nil:
		return nil, nil, domain.ErrLedgerNotLoaded
	case c.pending != "":
		return nil, nil, errors.Wrapf(domain.ErrOperationPending, "%s in flight", c.pending)
	}

	c.pending = op
	var once sync.Once
	return c.handle, func() {
		once.Do(func() {
			c.mu.Lock()
			c.pending = ""
			c.mu.Unlock()
		})
	}, nil
}
