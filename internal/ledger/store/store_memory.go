package store

import (
	"context"
	"sync"

	"bioentry/internal/ledger"
	"bioentry/pkg/platform/sentinel"
)

// MemoryStore keeps records in an append-only slice guarded by a mutex. The
// single writer lock stands in for the transactional isolation the backing
// collection lacks.
type MemoryStore struct {
	mu      sync.RWMutex
	records []ledger.Record
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, record ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filters ledger.Filters) ([]ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Record, 0, len(s.records))
	for _, r := range s.records {
		if matches(r, filters) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Latest(_ context.Context, subjectID string) (ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].SubjectID == subjectID {
			return s.records[i], nil
		}
	}
	return ledger.Record{}, sentinel.ErrNotFound
}

func matches(r ledger.Record, f ledger.Filters) bool {
	if f.SubjectID != "" && r.SubjectID != f.SubjectID {
		return false
	}
	if f.CompanyID != "" && r.CompanyID != f.CompanyID {
		return false
	}
	if f.DateFrom != nil && r.Timestamp.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.Timestamp.After(*f.DateTo) {
		return false
	}
	if f.Direction != nil && r.Direction != *f.Direction {
		return false
	}
	if f.OutOfBounds != nil && r.OutOfBounds != *f.OutOfBounds {
		return false
	}
	return true
}
