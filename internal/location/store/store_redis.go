package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bioentry/internal/location"
	"bioentry/pkg/platform/sentinel"
)

// Redis key prefix for location profile documents.
const profileKeyPrefix = "loc:subject:"

// RedisStore keeps one JSON document per subject under its own key, so every
// profile mutation is a per-key atomic SET instead of a read-modify-write of a
// shared collection. Legacy documents imported from older deployments are
// normalized on read and only rewritten in the canonical shape on the next
// Put.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed location profile store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, subjectID string) (location.Profile, error) {
	raw, err := s.client.Get(ctx, profileKeyPrefix+subjectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return location.Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return location.Profile{}, fmt.Errorf("get location profile: %w", err)
	}

	p, err := location.NormalizeDocument(raw)
	if err != nil {
		return location.Profile{}, fmt.Errorf("decode location profile: %w", err)
	}
	if p.SubjectID == "" {
		p.SubjectID = subjectID
	}
	return p, nil
}

func (s *RedisStore) Put(ctx context.Context, profile location.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode location profile: %w", err)
	}
	if err := s.client.Set(ctx, profileKeyPrefix+profile.SubjectID, raw, 0).Err(); err != nil {
		return fmt.Errorf("put location profile: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, subjectID string) error {
	if err := s.client.Del(ctx, profileKeyPrefix+subjectID).Err(); err != nil {
		return fmt.Errorf("delete location profile: %w", err)
	}
	return nil
}
