// Package txjournal keeps an append-only audit trail of ledger transactions.
// The journal is never read back as ledger state.
package txjournal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/stockdesk/internal/domain"
)

const (
	DefaultDir   = "./wal/txjournal"
	segmentLimit = 100
	maxSegments  = 10

	recordKeyPrefix = "tx_"
)

// WALStore persists transaction records in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens the journal in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "tx_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init tx journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes rec as the next journal entry.
func (s *WALStore) Append(rec domain.TxRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("tx journal is not initialized")
	}
	if rec.Operation == "" {
		return fmt.Errorf("tx record operation is required")
	}
	if rec.CorrelationID == "" {
		return fmt.Errorf("tx record correlation id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal tx record")
	}

	key := fmt.Sprintf("%s%s_%s", recordKeyPrefix, rec.Operation, rec.Phase)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// RecordsAfter returns the records written after the given index.
func (s *WALStore) RecordsAfter(index uint64) ([]domain.TxRecordEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("tx journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]domain.TxRecordEntry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, recordKeyPrefix) {
			continue
		}

		var rec domain.TxRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode tx record %d", idx)
		}
		entries = append(entries, domain.TxRecordEntry{Index: idx, Record: rec})
	}

	return entries, nil
}

// CurrentIndex returns the latest journal index.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("tx journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
