//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bioentry/internal/location"
	"bioentry/internal/location/store"
	"bioentry/pkg/platform/sentinel"
	"bioentry/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	in := location.Profile{
		SubjectID:   "123",
		DisplayName: "Ana",
		Geofences: []location.Geofence{
			{Latitude: 4.6, Longitude: -74.0, RadiusMeters: 150, Name: "HQ"},
			{Latitude: 4.7, Longitude: -74.1, RadiusMeters: 300, Name: "Annex"},
		},
	}

	s.Require().NoError(s.store.Put(ctx, in))

	got, err := s.store.Get(ctx, "123")
	s.Require().NoError(err)
	s.Equal(in, got)
}

func (s *RedisStoreSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Documents written by older deployments are decoded transparently. The raw
// key is seeded outside the store to simulate an imported legacy value.
func (s *RedisStoreSuite) TestGetLegacySingleFenceDocument() {
	ctx := context.Background()
	legacy := `{"cedula":"123","lat":4.6,"lng":-74.0}`
	s.Require().NoError(s.redis.Client.Set(ctx, "loc:subject:123", legacy, 0).Err())

	got, err := s.store.Get(ctx, "123")
	s.Require().NoError(err)

	s.Equal("123", got.SubjectID)
	s.Require().Len(got.Geofences, 1)
	s.Equal(location.DefaultFenceName, got.Geofences[0].Name)
	s.Equal(float64(location.DefaultRadiusMeters), got.Geofences[0].RadiusMeters)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, location.Profile{SubjectID: "123"}))
	s.Require().NoError(s.store.Delete(ctx, "123"))

	_, err := s.store.Get(ctx, "123")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.store.Delete(ctx, "123"), "deleting a missing profile is not an error")
}
