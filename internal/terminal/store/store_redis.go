package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"bioentry/pkg/platform/sentinel"
)

const (
	requestKeyPrefix   = "enroll:request:"
	requestIndexPrefix = "enroll:terminal:"
)

// RedisStore keeps one JSON document per enrollment request plus a per-terminal
// set index so a terminal's poll does not scan the keyspace.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed enrollment request store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, req EnrollmentRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode enrollment request: %w", err)
	}

	set, err := s.client.SetNX(ctx, requestKeyPrefix+req.ID, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("create enrollment request: %w", err)
	}
	if !set {
		return sentinel.ErrConflict
	}
	if err := s.client.SAdd(ctx, requestIndexPrefix+req.TerminalID, req.ID).Err(); err != nil {
		return fmt.Errorf("index enrollment request: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (EnrollmentRequest, error) {
	raw, err := s.client.Get(ctx, requestKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return EnrollmentRequest{}, sentinel.ErrNotFound
	}
	if err != nil {
		return EnrollmentRequest{}, fmt.Errorf("get enrollment request: %w", err)
	}

	var req EnrollmentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return EnrollmentRequest{}, fmt.Errorf("decode enrollment request: %w", err)
	}
	return req, nil
}

func (s *RedisStore) Put(ctx context.Context, req EnrollmentRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode enrollment request: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, requestKeyPrefix+req.ID, raw, 0)
	pipe.SAdd(ctx, requestIndexPrefix+req.TerminalID, req.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put enrollment request: %w", err)
	}
	return nil
}

func (s *RedisStore) ListFor(ctx context.Context, terminalID string) ([]EnrollmentRequest, error) {
	ids, err := s.client.SMembers(ctx, requestIndexPrefix+terminalID).Result()
	if err != nil {
		return nil, fmt.Errorf("list enrollment requests: %w", err)
	}

	var out []EnrollmentRequest
	for _, id := range ids {
		req, err := s.Get(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}
