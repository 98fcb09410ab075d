package store

import (
	"context"
	"sync"

	"bioentry/internal/location"
	"bioentry/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]location.Profile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]location.Profile)}
}

func (s *MemoryStore) Get(_ context.Context, subjectID string) (location.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[subjectID]
	if !ok {
		return location.Profile{}, sentinel.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *MemoryStore) Put(_ context.Context, profile location.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.SubjectID] = cloneProfile(profile)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, subjectID)
	return nil
}

// cloneProfile guards against callers mutating the fence slice after a call.
func cloneProfile(p location.Profile) location.Profile {
	out := p
	out.Geofences = make([]location.Geofence, len(p.Geofences))
	copy(out.Geofences, p.Geofences)
	return out
}
