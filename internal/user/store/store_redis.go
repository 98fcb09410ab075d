package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"bioentry/internal/user"
	"bioentry/pkg/platform/sentinel"
)

const (
	userKeyPrefix = "user:subject:"
	userIndexKey  = "user:index"
)

// RedisStore persists user profiles as JSON values keyed by subject id, with
// a set index for listing. SET and SADD are individually atomic; the index
// may briefly lag a concurrent Put, which List tolerates by skipping missing
// keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed user store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func userKey(subjectID string) string {
	return userKeyPrefix + subjectID
}

func (s *RedisStore) Get(ctx context.Context, subjectID string) (user.User, error) {
	raw, err := s.client.Get(ctx, userKey(subjectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return user.User{}, sentinel.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user %s: %w", subjectID, err)
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return user.User{}, fmt.Errorf("decode user %s: %w", subjectID, err)
	}
	return u, nil
}

func (s *RedisStore) Put(ctx context.Context, u user.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", u.SubjectID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, userKey(u.SubjectID), raw, 0)
	pipe.SAdd(ctx, userIndexKey, u.SubjectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put user %s: %w", u.SubjectID, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]user.User, error) {
	ids, err := s.client.SMembers(ctx, userIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.Strings(ids)

	out := make([]user.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Get(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, subjectID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, userKey(subjectID))
	pipe.SRem(ctx, userIndexKey, subjectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user %s: %w", subjectID, err)
	}
	return nil
}
