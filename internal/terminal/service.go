package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bioentry/internal/ledger"
	"bioentry/internal/terminal/store"
	"bioentry/internal/user"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/sentinel"
)

// Names longer than this are truncated in sync payloads. Terminal firmware
// allocates fixed-width display buffers.
const maxSyncNameLen = 30

// Directory lists and resolves registered users.
type Directory interface {
	List(ctx context.Context) ([]user.User, error)
}

// Records is the ledger surface the terminal API needs.
type Records interface {
	Append(ctx context.Context, record ledger.Record) (ledger.Record, error)
	Query(ctx context.Context, filters ledger.Filters) ([]ledger.Record, error)
	ClassifyDirection(ctx context.Context, subjectID string) ledger.Direction
}

// Service implements the terminal operations API.
type Service struct {
	users    Directory
	records  Records
	requests store.Store
	logger   *slog.Logger

	configs   map[string]Config
	matcherUp func(ctx context.Context) bool
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConfigs overrides the default operating configuration for the given
// terminals. Terminals without an entry get the built-in defaults.
func WithConfigs(configs map[string]Config) ServiceOption {
	return func(s *Service) {
		for id, cfg := range configs {
			s.configs[id] = cfg
		}
	}
}

// WithMatcherProbe sets the health probe for the face match backend. Health
// responses report facial_recognition from it.
func WithMatcherProbe(probe func(ctx context.Context) bool) ServiceOption {
	return func(s *Service) {
		if probe != nil {
			s.matcherUp = probe
		}
	}
}

// NewService creates a terminal Service.
func NewService(users Directory, records Records, requests store.Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		users:     users,
		records:   records,
		requests:  requests,
		logger:    logger,
		configs:   make(map[string]Config),
		matcherUp: func(context.Context) bool { return true },
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Health is the fast probe terminals poll for their online/offline decision.
func (s *Service) Health(ctx context.Context, terminalID string) Health {
	return Health{
		Status:     "healthy",
		Timestamp:  s.now().UTC(),
		TerminalID: terminalID,
		APIVersion: APIVersion,
		Services: map[string]bool{
			"facial_recognition": s.matcherUp(ctx),
			"database":           true,
			"file_system":        true,
		},
	}
}

// ConfigFor returns the operating configuration for a terminal.
func (s *Service) ConfigFor(terminalID string) ConfigEnvelope {
	cfg, ok := s.configs[terminalID]
	if !ok {
		cfg = defaultConfig(terminalID)
	}
	cfg.TerminalID = terminalID
	return ConfigEnvelope{Timestamp: s.now().UTC(), Config: cfg}
}

func defaultConfig(terminalID string) Config {
	return Config{
		TerminalID: terminalID,
		Location: LocationConfig{
			Name:         "Principal",
			RadiusMeters: 200,
		},
		Hardware: HardwareConfig{
			CameraEnabled:      true,
			FingerprintEnabled: true,
			ProximityEnabled:   true,
			AudioEnabled:       true,
		},
		Operation: OperationConfig{
			Mode:                   "hybrid",
			MaxFacialAttempts:      3,
			MaxFingerprintAttempts: 3,
			TimeoutSeconds:         30,
			AutoSyncIntervalSecs:   300,
		},
		Display: DisplayConfig{
			Brightness:     80,
			TimeoutSeconds: 60,
			Language:       "es",
		},
		Sync: SyncConfig{
			BatchSize:         50,
			RetryAttempts:     5,
			RetryDelaySeconds: 30,
		},
	}
}

// SyncDatabase builds the compact user snapshot a terminal stores locally.
// Slots are 1-based positions in the terminal's memory layout.
func (s *Service) SyncDatabase(ctx context.Context) (SyncPayload, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return SyncPayload{}, dErrors.Wrap(err, dErrors.CodeInternal, "list users for sync")
	}

	records := make([]SyncRecord, 0, len(users))
	for idx, u := range users {
		records = append(records, SyncRecord{
			SubjectID: u.SubjectID,
			Name:      truncateName(u.Name),
			CompanyID: u.CompanyID,
			Slot:      idx + 1,
		})
	}
	return SyncPayload{
		SyncTimestamp: s.now().UTC(),
		TotalRecords:  len(records),
		Records:       records,
	}, nil
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxSyncNameLen {
		return name
	}
	return string(runes[:maxSyncNameLen])
}

// CheckSync tells a terminal whether its local database is worth refreshing.
// The directory does not track deltas, so terminals are always advised to
// pull; the count and timestamp let firmware skip a pull it already has.
func (s *Service) CheckSync(ctx context.Context) (SyncCheck, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return SyncCheck{}, dErrors.Wrap(err, dErrors.CodeInternal, "list users for sync check")
	}

	lastModified := time.Time{}
	for _, u := range users {
		if u.RegisteredAt.After(lastModified) {
			lastModified = u.RegisteredAt
		}
	}
	if lastModified.IsZero() {
		lastModified = s.now().UTC()
	}
	return SyncCheck{
		NeedsSync:    true,
		LastModified: lastModified,
		UserCount:    len(users),
	}, nil
}

// BulkUpload ingests a batch of records captured while a terminal was
// offline. Each record succeeds or fails independently; a bad record never
// aborts the batch. Direction is classified from the subject's ledger
// history, manual entries stay unverified, and terminal records are in
// bounds by definition.
func (s *Service) BulkUpload(ctx context.Context, in BulkRequest) (BulkResult, error) {
	if len(in.Records) == 0 {
		return BulkResult{}, dErrors.New(dErrors.CodeBadRequest, "no records to process")
	}

	result := BulkResult{
		SyncTimestamp: s.now().UTC(),
		TerminalID:    in.TerminalID,
		Processed:     []BulkRecordResult{},
		Failed:        []BulkRecordResult{},
	}
	for _, rec := range in.Records {
		serverID, err := s.ingestBulkRecord(ctx, in.TerminalID, rec)
		if err != nil {
			s.logger.WarnContext(ctx, "bulk record rejected",
				"terminal_id", in.TerminalID,
				"terminal_record_id", rec.TerminalRecordID,
				"error", err)
			result.Failed = append(result.Failed, BulkRecordResult{
				TerminalRecordID: rec.TerminalRecordID,
				Status:           "failed",
				Error:            err.Error(),
			})
			continue
		}
		result.Processed = append(result.Processed, BulkRecordResult{
			TerminalRecordID: rec.TerminalRecordID,
			ServerRecordID:   serverID,
			Status:           "success",
		})
	}

	result.Summary = BulkSummary{
		TotalReceived:         len(in.Records),
		ProcessedSuccessfully: len(result.Processed),
		Failed:                len(result.Failed),
	}
	return result, nil
}

func (s *Service) ingestBulkRecord(ctx context.Context, terminalID string, rec BulkRecord) (string, error) {
	if rec.SubjectID == "" {
		return "", errors.New("subject id is required")
	}
	switch rec.VerificationType {
	case VerificationFacial, VerificationFingerprint, VerificationManual:
	default:
		return "", fmt.Errorf("unknown verification type %q", rec.VerificationType)
	}

	ts := rec.AccessTimestamp
	if ts.IsZero() {
		ts = s.now()
	}
	locationName := rec.LocationName
	if locationName == "" {
		locationName = "Terminal"
	}

	record := ledger.Record{
		ID:               uuid.NewString(),
		SubjectID:        rec.SubjectID,
		Timestamp:        ts.UTC(),
		Direction:        s.records.ClassifyDirection(ctx, rec.SubjectID),
		Verified:         rec.VerificationType != VerificationManual,
		MatchDistance:    rec.ConfidenceScore,
		SourceTerminalID: terminalID,
		IsRemoteClient:   false,
		OutOfBounds:      false,
		Comment:          fmt.Sprintf("%s record uploaded from terminal", rec.VerificationType),
		LocationName:     locationName,
	}
	stored, err := s.records.Append(ctx, record)
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

// Status summarizes a terminal's ledger footprint for monitoring.
func (s *Service) Status(ctx context.Context, terminalID string) (StatusReport, error) {
	all, err := s.records.Query(ctx, ledger.Filters{})
	if err != nil {
		return StatusReport{}, err
	}

	now := s.now().UTC()
	today := now.Format("2006-01-02")
	report := StatusReport{TerminalID: terminalID, Timestamp: now}
	var lastSync time.Time
	for _, rec := range all {
		if rec.SourceTerminalID != terminalID {
			continue
		}
		report.TotalRecords++
		if rec.Timestamp.UTC().Format("2006-01-02") == today {
			report.RecordsToday++
		}
		if rec.Timestamp.After(lastSync) {
			lastSync = rec.Timestamp
		}
	}
	if !lastSync.IsZero() {
		report.LastSync = &lastSync
	}
	return report, nil
}

// CreateRequest queues an enrollment request for a terminal. Called by the
// registration flow after a new user is stored.
func (s *Service) CreateRequest(ctx context.Context, subjectID, name, terminalID string) (EnrollmentRequest, error) {
	if subjectID == "" || terminalID == "" {
		return EnrollmentRequest{}, dErrors.New(dErrors.CodeBadRequest, "subject id and terminal id are required")
	}

	req := EnrollmentRequest{
		ID:          uuid.NewString(),
		SubjectID:   subjectID,
		Name:        name,
		TerminalID:  terminalID,
		State:       RequestPending,
		RequestedAt: s.now().UTC(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return EnrollmentRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "store enrollment request")
	}
	return req, nil
}

// PendingRequests returns a terminal's unresolved enrollment requests in
// request order.
func (s *Service) PendingRequests(ctx context.Context, terminalID string) ([]EnrollmentRequest, error) {
	all, err := s.requests.ListFor(ctx, terminalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list enrollment requests")
	}

	pending := make([]EnrollmentRequest, 0, len(all))
	for _, req := range all {
		if req.State == RequestPending {
			pending = append(pending, req)
		}
	}
	return pending, nil
}

// ResolveRequest marks an enrollment request approved or rejected.
func (s *Service) ResolveRequest(ctx context.Context, id, state string) (EnrollmentRequest, error) {
	if state != RequestApproved && state != RequestRejected {
		return EnrollmentRequest{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("state must be %q or %q", RequestApproved, RequestRejected))
	}

	req, err := s.requests.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return EnrollmentRequest{}, dErrors.New(dErrors.CodeNotFound, "enrollment request not found")
	}
	if err != nil {
		return EnrollmentRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "get enrollment request")
	}

	updatedAt := s.now().UTC()
	req.State = state
	req.UpdatedAt = &updatedAt
	if err := s.requests.Put(ctx, req); err != nil {
		return EnrollmentRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "store enrollment request")
	}
	return req, nil
}
