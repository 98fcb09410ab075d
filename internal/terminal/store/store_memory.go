package store

import (
	"context"
	"sort"
	"sync"

	"bioentry/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]EnrollmentRequest
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]EnrollmentRequest)}
}

func (s *MemoryStore) Create(_ context.Context, req EnrollmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[req.ID] = req
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (EnrollmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return EnrollmentRequest{}, sentinel.ErrNotFound
	}
	return req, nil
}

func (s *MemoryStore) Put(_ context.Context, req EnrollmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *MemoryStore) ListFor(_ context.Context, terminalID string) ([]EnrollmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EnrollmentRequest
	for _, req := range s.requests {
		if req.TerminalID == terminalID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}
