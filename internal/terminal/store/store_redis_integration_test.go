//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bioentry/internal/terminal"
	"bioentry/internal/terminal/store"
	"bioentry/pkg/platform/sentinel"
	"bioentry/pkg/testutil/containers"
)

type RedisRequestStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisRequestStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisRequestStoreSuite))
}

func (s *RedisRequestStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisStore(s.redis.Client)
}

func (s *RedisRequestStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRequestStoreSuite) TestCreateGetRoundTrip() {
	ctx := context.Background()

	req := terminal.EnrollmentRequest{
		ID:          "r-1",
		SubjectID:   "1002003001",
		Name:        "Maria Lopez",
		TerminalID:  "terminal-1",
		State:       terminal.RequestPending,
		RequestedAt: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Create(ctx, req))

	got, err := s.store.Get(ctx, "r-1")
	s.Require().NoError(err)
	s.Equal(req, got)
}

func (s *RedisRequestStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()

	req := terminal.EnrollmentRequest{ID: "r-1", TerminalID: "terminal-1", State: terminal.RequestPending}
	s.Require().NoError(s.store.Create(ctx, req))

	err := s.store.Create(ctx, req)
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *RedisRequestStoreSuite) TestListForScopedToTerminal() {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	for _, req := range []terminal.EnrollmentRequest{
		{ID: "r-2", TerminalID: "terminal-1", State: terminal.RequestPending, RequestedAt: base.Add(time.Minute)},
		{ID: "r-1", TerminalID: "terminal-1", State: terminal.RequestPending, RequestedAt: base},
		{ID: "r-3", TerminalID: "terminal-2", State: terminal.RequestPending, RequestedAt: base},
	} {
		s.Require().NoError(s.store.Create(ctx, req))
	}

	got, err := s.store.ListFor(ctx, "terminal-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("r-1", got[0].ID)
	s.Equal("r-2", got[1].ID)
}

func (s *RedisRequestStoreSuite) TestPutUpdatesState() {
	ctx := context.Background()

	req := terminal.EnrollmentRequest{ID: "r-1", TerminalID: "terminal-1", State: terminal.RequestPending}
	s.Require().NoError(s.store.Create(ctx, req))

	updatedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	req.State = terminal.RequestApproved
	req.UpdatedAt = &updatedAt
	s.Require().NoError(s.store.Put(ctx, req))

	got, err := s.store.Get(ctx, "r-1")
	s.Require().NoError(err)
	s.Equal(terminal.RequestApproved, got.State)
	s.Require().NotNil(got.UpdatedAt)
	s.Equal(updatedAt, *got.UpdatedAt)
}
