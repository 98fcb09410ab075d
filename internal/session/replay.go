package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bioentry/pkg/platform/sentinel"
)

const usedCredentialKeyPrefix = "session:used:"

// ReplayGuard makes credentials single-use. Consume marks a credential id as
// spent and fails with sentinel.ErrAlreadyUsed on a second attempt.
type ReplayGuard interface {
	Consume(ctx context.Context, jti string, ttl time.Duration) error
}

// RedisReplayGuard is the shared-state guard for multi-instance deployments.
// SETNX gives the first caller the claim atomically; the TTL matches the
// credential lifetime so spent markers clean themselves up.
type RedisReplayGuard struct {
	client *redis.Client
}

// NewRedisReplayGuard creates a Redis-backed replay guard.
func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

func (g *RedisReplayGuard) Consume(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return sentinel.ErrAlreadyUsed
	}
	ok, err := g.client.SetNX(ctx, usedCredentialKeyPrefix+jti, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// MemoryReplayGuard is a single-process guard for tests and development.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// NewMemoryReplayGuard creates an in-memory replay guard.
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{used: map[string]time.Time{}, now: time.Now}
}

func (g *MemoryReplayGuard) Consume(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return sentinel.ErrAlreadyUsed
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiry, ok := g.used[jti]; ok && expiry.After(now) {
		return sentinel.ErrAlreadyUsed
	}
	g.used[jti] = now.Add(ttl)
	return nil
}
