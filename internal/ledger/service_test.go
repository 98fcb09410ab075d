package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioentry/internal/ledger"
	"bioentry/internal/ledger/store"
	"bioentry/internal/policy"
	dErrors "bioentry/pkg/domain-errors"
)

type stubProfiles struct {
	mobilities map[string]policy.Mobility
}

func (s *stubProfiles) MobilityOf(_ context.Context, subjectID string) (policy.Mobility, error) {
	m, ok := s.mobilities[subjectID]
	if !ok {
		return "", errors.New("unknown subject")
	}
	return m, nil
}

type failingStore struct {
	store.MemoryStore
	appendErr error
	listErr   error
}

func (s *failingStore) Append(ctx context.Context, r ledger.Record) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.MemoryStore.Append(ctx, r)
}

func (s *failingStore) List(ctx context.Context, f ledger.Filters) ([]ledger.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.List(ctx, f)
}

func newService(t *testing.T, profiles map[string]policy.Mobility) (*ledger.Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := ledger.NewService(st, &stubProfiles{mobilities: profiles},
		ledger.WithClock(func() time.Time {
			return time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
		}))
	return svc, st
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	svc, _ := newService(t, nil)

	rec, err := svc.Append(context.Background(), ledger.Record{
		SubjectID: "1002003001",
		Direction: ledger.DirectionEntry,
		CompanyID: "acme",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC), rec.Timestamp)
}

func TestAppendKeepsProvidedIDAndTimestamp(t *testing.T) {
	svc, _ := newService(t, nil)

	ts := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	rec, err := svc.Append(context.Background(), ledger.Record{
		ID:        "rec-1",
		SubjectID: "1002003001",
		Timestamp: ts,
		Direction: ledger.DirectionExit,
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, ts, rec.Timestamp)
}

func TestAppendWrapsStoreError(t *testing.T) {
	st := &failingStore{appendErr: errors.New("disk full")}
	svc := ledger.NewService(st, &stubProfiles{})

	_, err := svc.Append(context.Background(), ledger.Record{SubjectID: "x"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestQueryPreservesAppendOrder(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	subjects := []string{"a", "b", "a", "c", "a"}
	for _, s := range subjects {
		_, err := svc.Append(ctx, ledger.Record{SubjectID: s, Direction: ledger.DirectionEntry})
		require.NoError(t, err)
	}

	got, err := svc.Query(ctx, ledger.Filters{})
	require.NoError(t, err)
	require.Len(t, got, len(subjects))
	for i, r := range got {
		assert.Equal(t, subjects[i], r.SubjectID)
	}
}

func TestQueryMobilityFilterJoinsCurrentProfile(t *testing.T) {
	profiles := &stubProfiles{mobilities: map[string]policy.Mobility{
		"fixed-1":  policy.MobilityFixed,
		"mobile-1": policy.MobilityMobile,
	}}
	st := store.NewMemoryStore()
	svc := ledger.NewService(st, profiles)
	ctx := context.Background()

	for _, s := range []string{"fixed-1", "mobile-1", "fixed-1", "ghost"} {
		_, err := svc.Append(ctx, ledger.Record{SubjectID: s, Direction: ledger.DirectionEntry})
		require.NoError(t, err)
	}

	fixed := policy.MobilityFixed
	got, err := svc.Query(ctx, ledger.Filters{Mobility: &fixed})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "fixed-1", r.SubjectID)
	}

	// Reassigning the profile changes which historical records the filter
	// matches, because the join is always against the current profile.
	profiles.mobilities["mobile-1"] = policy.MobilityFixed
	got, err = svc.Query(ctx, ledger.Filters{Mobility: &fixed})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestClassifyDirectionAlternates(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	assert.Equal(t, ledger.DirectionEntry, svc.ClassifyDirection(ctx, "1002003001"))

	for _, dir := range []ledger.Direction{ledger.DirectionEntry, ledger.DirectionExit, ledger.DirectionEntry} {
		_, err := svc.Append(ctx, ledger.Record{SubjectID: "1002003001", Direction: dir})
		require.NoError(t, err)
	}

	assert.Equal(t, ledger.DirectionExit, svc.ClassifyDirection(ctx, "1002003001"))
}

func TestClassifyDirectionIgnoresOtherSubjects(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Append(ctx, ledger.Record{SubjectID: "other", Direction: ledger.DirectionEntry})
	require.NoError(t, err)

	assert.Equal(t, ledger.DirectionEntry, svc.ClassifyDirection(ctx, "1002003001"))
}

func TestClassifyDirectionFailsOpenToEntry(t *testing.T) {
	st := &failingStore{}
	svc := ledger.NewService(st, &stubProfiles{})
	ctx := context.Background()

	_, err := svc.Append(ctx, ledger.Record{SubjectID: "s", Direction: ledger.DirectionEntry})
	require.NoError(t, err)

	// A healthy store would classify exit here; a broken lookup must not
	// block the check-in.
	broken := ledger.NewService(&brokenLatestStore{}, &stubProfiles{})
	assert.Equal(t, ledger.DirectionEntry, broken.ClassifyDirection(ctx, "s"))
}

type brokenLatestStore struct {
	store.MemoryStore
}

func (s *brokenLatestStore) Latest(context.Context, string) (ledger.Record, error) {
	return ledger.Record{}, errors.New("connection reset")
}

func TestOutOfBoundsStatsPercent(t *testing.T) {
	profiles := map[string]policy.Mobility{
		"s1": policy.MobilityMobile,
		"s2": policy.MobilityFree,
	}
	svc, _ := newService(t, profiles)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		rec := ledger.Record{SubjectID: "s1", Direction: ledger.DirectionEntry}
		if i < 3 {
			rec.OutOfBounds = true
			if i == 2 {
				rec.SubjectID = "s2"
			}
		}
		_, err := svc.Append(ctx, rec)
		require.NoError(t, err)
	}

	stats, err := svc.OutOfBoundsStats(ctx, ledger.Filters{})
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 3, stats.OutOfBoundsCount)
	assert.InDelta(t, 30.0, stats.OutOfBoundsPercent, 1e-9)
	assert.Equal(t, map[string]int{"mobile": 2, "free": 1}, stats.ByProfile)
	assert.Equal(t, map[string]int{"2026-03-10": 3}, stats.ByDay)

	require.Len(t, stats.TopSubjects, 2)
	assert.Equal(t, ledger.SubjectCount{SubjectID: "s1", Count: 2}, stats.TopSubjects[0])
	assert.Equal(t, ledger.SubjectCount{SubjectID: "s2", Count: 1}, stats.TopSubjects[1])
}

func TestOutOfBoundsStatsEmptySet(t *testing.T) {
	svc, _ := newService(t, nil)

	stats, err := svc.OutOfBoundsStats(context.Background(), ledger.Filters{})
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.OutOfBoundsPercent)
	assert.Empty(t, stats.TopSubjects)
}

func TestOutOfBoundsStatsRoundsToTwoDecimals(t *testing.T) {
	svc, _ := newService(t, map[string]policy.Mobility{"s": policy.MobilityFree})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, ledger.Record{
			SubjectID:   "s",
			Direction:   ledger.DirectionEntry,
			OutOfBounds: i == 0,
		})
		require.NoError(t, err)
	}

	stats, err := svc.OutOfBoundsStats(ctx, ledger.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 33.33, stats.OutOfBoundsPercent)
}
