package domain

import "time"

// TxPhase is the completion phase of a ledger transaction.
type TxPhase string

const (
	TxSubmitted TxPhase = "submitted"
	TxSettled   TxPhase = "settled"
	TxFailed    TxPhase = "failed"
)

// TxRecord is a journal entry for one phase of a mutating ledger operation.
type TxRecord struct {
	Timestamp time.Time `json:"ts"`
	// CorrelationID ties the phases of one user intent together.
	CorrelationID string  `json:"correlation_id"`
	Operation     string  `json:"op"`
	Account       string  `json:"account"`
	Hash          string  `json:"hash,omitempty"`
	Phase         TxPhase `json:"phase"`
	Block         uint64  `json:"block,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// TxRecordEntry bundles a record with its journal index.
type TxRecordEntry struct {
	Index  uint64
	Record TxRecord
}
