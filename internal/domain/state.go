package domain

// ClientState is the lifecycle state of the client.
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnected
	StateLedgerBound
	StatePending
)

// String returns the string representation of the state.
func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateLedgerBound:
		return "ledger_bound"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}
