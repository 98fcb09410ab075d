package store

import (
	"context"
	"sort"
	"sync"

	"bioentry/internal/user"
	"bioentry/pkg/platform/sentinel"
)

// MemoryStore keeps user profiles in a mutex-guarded map.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]user.User
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]user.User{}}
}

func (s *MemoryStore) Get(_ context.Context, subjectID string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[subjectID]
	if !ok {
		return user.User{}, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) Put(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.SubjectID] = u
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, subjectID)
	return nil
}
