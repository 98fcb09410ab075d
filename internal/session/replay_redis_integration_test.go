//go:build integration

package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bioentry/internal/session"
	"bioentry/pkg/platform/sentinel"
	"bioentry/pkg/testutil/containers"
)

type RedisReplayGuardSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	guard *session.RedisReplayGuard
}

func TestRedisReplayGuardSuite(t *testing.T) {
	suite.Run(t, new(RedisReplayGuardSuite))
}

func (s *RedisReplayGuardSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.guard = session.NewRedisReplayGuard(s.redis.Client)
}

func (s *RedisReplayGuardSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisReplayGuardSuite) TestConsumeIsSingleUse() {
	ctx := context.Background()

	s.Require().NoError(s.guard.Consume(ctx, "jti-1", time.Minute))

	err := s.guard.Consume(ctx, "jti-1", time.Minute)
	s.True(errors.Is(err, sentinel.ErrAlreadyUsed))
}

func (s *RedisReplayGuardSuite) TestConsumeExpiresWithTTL() {
	ctx := context.Background()

	s.Require().NoError(s.guard.Consume(ctx, "jti-1", 500*time.Millisecond))
	time.Sleep(time.Second)

	s.NoError(s.guard.Consume(ctx, "jti-1", time.Minute))
}

func (s *RedisReplayGuardSuite) TestDistinctCredentials() {
	ctx := context.Background()

	s.Require().NoError(s.guard.Consume(ctx, "jti-1", time.Minute))
	s.Require().NoError(s.guard.Consume(ctx, "jti-2", time.Minute))
}
