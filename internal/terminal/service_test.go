package terminal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioentry/internal/ledger"
	"bioentry/internal/terminal/store"
	"bioentry/internal/user"
	dErrors "bioentry/pkg/domain-errors"
)

type stubDirectory struct {
	users []user.User
	err   error
}

func (d *stubDirectory) List(context.Context) ([]user.User, error) {
	return d.users, d.err
}

type fakeRecords struct {
	appended  []ledger.Record
	existing  []ledger.Record
	direction ledger.Direction
	appendErr error
	queryErr  error
}

func (f *fakeRecords) Append(_ context.Context, record ledger.Record) (ledger.Record, error) {
	if f.appendErr != nil {
		return ledger.Record{}, f.appendErr
	}
	f.appended = append(f.appended, record)
	return record, nil
}

func (f *fakeRecords) Query(context.Context, ledger.Filters) ([]ledger.Record, error) {
	return f.existing, f.queryErr
}

func (f *fakeRecords) ClassifyDirection(context.Context, string) ledger.Direction {
	if f.direction == "" {
		return ledger.DirectionEntry
	}
	return f.direction
}

func newTestService(t *testing.T, users *stubDirectory, records *fakeRecords, opts ...ServiceOption) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]ServiceOption{WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	})}, opts...)
	return NewService(users, records, store.NewMemoryStore(), logger, opts...)
}

func TestHealthReportsServices(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	h := svc.Health(context.Background(), "terminal-1")

	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "terminal-1", h.TerminalID)
	assert.Equal(t, APIVersion, h.APIVersion)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), h.Timestamp)
	assert.True(t, h.Services["facial_recognition"])
	assert.True(t, h.Services["database"])
}

func TestHealthReflectsMatcherProbe(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{},
		WithMatcherProbe(func(context.Context) bool { return false }))

	h := svc.Health(context.Background(), "terminal-1")

	assert.False(t, h.Services["facial_recognition"])
	assert.True(t, h.Services["database"])
}

func TestConfigForDefaults(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	env := svc.ConfigFor("terminal-1")

	assert.Equal(t, "terminal-1", env.Config.TerminalID)
	assert.Equal(t, "hybrid", env.Config.Operation.Mode)
	assert.Equal(t, 3, env.Config.Operation.MaxFacialAttempts)
	assert.Equal(t, 50, env.Config.Sync.BatchSize)
	assert.Equal(t, 200, env.Config.Location.RadiusMeters)
	assert.False(t, env.Timestamp.IsZero())
}

func TestConfigForOverride(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{}, WithConfigs(map[string]Config{
		"terminal-2": {
			Location:  LocationConfig{Name: "Bodega Norte", Latitude: 4.68, Longitude: -74.05, RadiusMeters: 150},
			Operation: OperationConfig{Mode: "offline_only"},
		},
	}))

	env := svc.ConfigFor("terminal-2")

	assert.Equal(t, "terminal-2", env.Config.TerminalID)
	assert.Equal(t, "Bodega Norte", env.Config.Location.Name)
	assert.Equal(t, "offline_only", env.Config.Operation.Mode)
}

func TestSyncDatabaseCompactsUsers(t *testing.T) {
	longName := strings.Repeat("x", 45)
	dir := &stubDirectory{users: []user.User{
		{SubjectID: "100", Name: "Ana Diaz", CompanyID: "acme"},
		{SubjectID: "200", Name: longName, CompanyID: "globex"},
	}}
	svc := newTestService(t, dir, &fakeRecords{})

	payload, err := svc.SyncDatabase(context.Background())
	require.NoError(t, err)

	require.Len(t, payload.Records, 2)
	assert.Equal(t, 2, payload.TotalRecords)
	assert.Equal(t, SyncRecord{SubjectID: "100", Name: "Ana Diaz", CompanyID: "acme", Slot: 1}, payload.Records[0])
	assert.Equal(t, "200", payload.Records[1].SubjectID)
	assert.Equal(t, strings.Repeat("x", 30), payload.Records[1].Name)
	assert.Equal(t, 2, payload.Records[1].Slot)
}

func TestSyncDatabaseDirectoryError(t *testing.T) {
	svc := newTestService(t, &stubDirectory{err: errors.New("redis gone")}, &fakeRecords{})

	_, err := svc.SyncDatabase(context.Background())

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestCheckSyncReportsLatestRegistration(t *testing.T) {
	older := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 20, 9, 30, 0, 0, time.UTC)
	dir := &stubDirectory{users: []user.User{
		{SubjectID: "100", RegisteredAt: older},
		{SubjectID: "200", RegisteredAt: newer},
	}}
	svc := newTestService(t, dir, &fakeRecords{})

	check, err := svc.CheckSync(context.Background())
	require.NoError(t, err)

	assert.True(t, check.NeedsSync)
	assert.Equal(t, 2, check.UserCount)
	assert.Equal(t, newer, check.LastModified)
}

func TestCheckSyncEmptyDirectory(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	check, err := svc.CheckSync(context.Background())
	require.NoError(t, err)

	assert.True(t, check.NeedsSync)
	assert.Zero(t, check.UserCount)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), check.LastModified)
}

func TestBulkUploadEmptyBatch(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	_, err := svc.BulkUpload(context.Background(), BulkRequest{TerminalID: "terminal-1"})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestBulkUploadMixedBatch(t *testing.T) {
	records := &fakeRecords{direction: ledger.DirectionExit}
	svc := newTestService(t, &stubDirectory{}, records)

	ts := time.Date(2026, 3, 9, 18, 45, 0, 0, time.UTC)
	result, err := svc.BulkUpload(context.Background(), BulkRequest{
		TerminalID: "terminal-1",
		Records: []BulkRecord{
			{TerminalRecordID: "t-1", SubjectID: "100", VerificationType: VerificationFacial, ConfidenceScore: 0.31, AccessTimestamp: ts},
			{TerminalRecordID: "t-2", SubjectID: "200", VerificationType: VerificationManual, AccessTimestamp: ts, LocationName: "Bodega"},
			{TerminalRecordID: "t-3", SubjectID: "300", VerificationType: "retina", AccessTimestamp: ts},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.TotalReceived)
	assert.Equal(t, 2, result.Summary.ProcessedSuccessfully)
	assert.Equal(t, 1, result.Summary.Failed)
	assert.Equal(t, "terminal-1", result.TerminalID)

	require.Len(t, result.Processed, 2)
	assert.Equal(t, "t-1", result.Processed[0].TerminalRecordID)
	assert.NotEmpty(t, result.Processed[0].ServerRecordID)
	assert.Equal(t, "success", result.Processed[0].Status)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "t-3", result.Failed[0].TerminalRecordID)
	assert.Contains(t, result.Failed[0].Error, "verification type")

	require.Len(t, records.appended, 2)
	facial := records.appended[0]
	assert.Equal(t, "100", facial.SubjectID)
	assert.True(t, facial.Verified)
	assert.InDelta(t, 0.31, facial.MatchDistance, 1e-9)
	assert.Equal(t, ledger.DirectionExit, facial.Direction)
	assert.Equal(t, "terminal-1", facial.SourceTerminalID)
	assert.False(t, facial.OutOfBounds)
	assert.False(t, facial.IsRemoteClient)
	assert.Equal(t, "Terminal", facial.LocationName)
	assert.Equal(t, ts, facial.Timestamp)

	manual := records.appended[1]
	assert.False(t, manual.Verified)
	assert.Equal(t, "Bodega", manual.LocationName)
}

func TestBulkUploadKeepsGoingAfterAppendError(t *testing.T) {
	records := &fakeRecords{appendErr: errors.New("store closed")}
	svc := newTestService(t, &stubDirectory{}, records)

	result, err := svc.BulkUpload(context.Background(), BulkRequest{
		TerminalID: "terminal-1",
		Records: []BulkRecord{
			{TerminalRecordID: "t-1", SubjectID: "100", VerificationType: VerificationFacial},
			{TerminalRecordID: "t-2", SubjectID: "200", VerificationType: VerificationFacial},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.Failed)
	assert.Zero(t, result.Summary.ProcessedSuccessfully)
	require.Len(t, result.Failed, 2)
	assert.Contains(t, result.Failed[0].Error, "store closed")
}

func TestStatusCountsTerminalRecords(t *testing.T) {
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	records := &fakeRecords{existing: []ledger.Record{
		{ID: "a", SourceTerminalID: "terminal-1", Timestamp: yesterday},
		{ID: "b", SourceTerminalID: "terminal-1", Timestamp: today},
		{ID: "c", SourceTerminalID: "terminal-2", Timestamp: today},
		{ID: "d", Timestamp: today},
	}}
	svc := newTestService(t, &stubDirectory{}, records)

	report, err := svc.Status(context.Background(), "terminal-1")
	require.NoError(t, err)

	assert.Equal(t, "terminal-1", report.TerminalID)
	assert.Equal(t, 2, report.TotalRecords)
	assert.Equal(t, 1, report.RecordsToday)
	require.NotNil(t, report.LastSync)
	assert.Equal(t, today, *report.LastSync)
}

func TestStatusNoRecords(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	report, err := svc.Status(context.Background(), "terminal-9")
	require.NoError(t, err)

	assert.Zero(t, report.TotalRecords)
	assert.Zero(t, report.RecordsToday)
	assert.Nil(t, report.LastSync)
}

func TestEnrollmentRequestLifecycle(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, "100", "Ana Diaz", "terminal-1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, RequestPending, created.State)

	pending, err := svc.PendingRequests(ctx, "terminal-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	resolved, err := svc.ResolveRequest(ctx, created.ID, RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, resolved.State)
	require.NotNil(t, resolved.UpdatedAt)

	pending, err = svc.PendingRequests(ctx, "terminal-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolveRequestInvalidState(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	_, err := svc.ResolveRequest(context.Background(), "whatever", "maybe")

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestResolveRequestNotFound(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	_, err := svc.ResolveRequest(context.Background(), "missing", RequestApproved)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCreateRequestRequiresIDs(t *testing.T) {
	svc := newTestService(t, &stubDirectory{}, &fakeRecords{})

	_, err := svc.CreateRequest(context.Background(), "", "Ana", "terminal-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = svc.CreateRequest(context.Background(), "100", "Ana", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
