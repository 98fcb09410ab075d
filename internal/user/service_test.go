package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioentry/internal/policy"
	"bioentry/internal/user"
	"bioentry/internal/user/store"
	dErrors "bioentry/pkg/domain-errors"
)

func newService(t *testing.T) *user.Service {
	t.Helper()
	return user.NewService(store.NewMemoryStore(),
		user.WithClock(func() time.Time {
			return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
		}))
}

func TestRegisterDefaultsToFixedMobility(t *testing.T) {
	svc := newService(t)

	u, err := svc.Register(context.Background(), user.RegisterInput{
		SubjectID: "1002003001",
		Name:      "Maria Lopez",
		CompanyID: "acme",
	})
	require.NoError(t, err)

	assert.Equal(t, policy.MobilityFixed, u.Mobility)
	assert.True(t, u.Active)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), u.RegisteredAt)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input user.RegisterInput
	}{
		{"missing subject id", user.RegisterInput{Name: "Maria"}},
		{"missing name", user.RegisterInput{SubjectID: "1002003001"}},
		{"blank subject id", user.RegisterInput{SubjectID: "   ", Name: "Maria"}},
		{"unknown mobility", user.RegisterInput{SubjectID: "1002003001", Name: "Maria", Mobility: "nomad"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, user.RegisterInput{SubjectID: "1002003001", Name: "Maria"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, user.RegisterInput{SubjectID: "1002003001", Name: "Someone Else"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestGetUnknownUser(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdateMobility(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, user.RegisterInput{SubjectID: "1002003001", Name: "Maria", Mobility: "fixed"})
	require.NoError(t, err)

	u, err := svc.UpdateMobility(ctx, "1002003001", "mobile")
	require.NoError(t, err)
	assert.Equal(t, policy.MobilityMobile, u.Mobility)

	m, err := svc.MobilityOf(ctx, "1002003001")
	require.NoError(t, err)
	assert.Equal(t, policy.MobilityMobile, m)
}

func TestUpdateMobilityRejectsUnknownProfile(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, user.RegisterInput{SubjectID: "1002003001", Name: "Maria"})
	require.NoError(t, err)

	_, err = svc.UpdateMobility(ctx, "1002003001", "teleport")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestSetActive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, user.RegisterInput{SubjectID: "1002003001", Name: "Maria"})
	require.NoError(t, err)

	u, err := svc.SetActive(ctx, "1002003001", false)
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestListOrderedBySubject(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, id := range []string{"3", "1", "2"} {
		_, err := svc.Register(ctx, user.RegisterInput{SubjectID: id, Name: "User " + id})
		require.NoError(t, err)
	}

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "1", users[0].SubjectID)
	assert.Equal(t, "2", users[1].SubjectID)
	assert.Equal(t, "3", users[2].SubjectID)
}

func TestMobilityOfUnknownSubject(t *testing.T) {
	svc := newService(t)

	_, err := svc.MobilityOf(context.Background(), "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
