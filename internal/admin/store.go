package admin

import (
	"context"
	"sync"

	"bioentry/pkg/platform/sentinel"
)

// Store persists operator accounts and issued refresh tokens.
type Store interface {
	GetAccount(ctx context.Context, username string) (Account, error)
	PutAccount(ctx context.Context, account Account) error
	GetRefresh(ctx context.Context, token string) (RefreshRecord, error)
	PutRefresh(ctx context.Context, record RefreshRecord) error
	DeleteRefresh(ctx context.Context, token string) error
}

// MemoryStore is the in-memory Store. Operator accounts are few and seeded at
// startup; losing refresh tokens on restart only forces a re-login.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	refresh  map[string]RefreshRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		refresh:  make(map[string]RefreshRecord),
	}
}

func (s *MemoryStore) GetAccount(_ context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[username]
	if !ok {
		return Account{}, sentinel.ErrNotFound
	}
	return account, nil
}

func (s *MemoryStore) PutAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Username] = account
	return nil
}

func (s *MemoryStore) GetRefresh(_ context.Context, token string) (RefreshRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.refresh[token]
	if !ok {
		return RefreshRecord{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) PutRefresh(_ context.Context, record RefreshRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[record.Token] = record
	return nil
}

func (s *MemoryStore) DeleteRefresh(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
	return nil
}
