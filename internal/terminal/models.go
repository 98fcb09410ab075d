// Package terminal serves the kiosk-facing operations API: health probes,
// per-terminal configuration, compact user database sync, batch upload of
// offline records and enrollment request delivery.
package terminal

import (
	"time"

	"bioentry/internal/terminal/store"
)

// APIVersion is reported to terminals on health checks so firmware can gate
// features on the server it is talking to.
const APIVersion = "1.0.0"

// SyncRecord is one user in the compact database pushed to a terminal. Field
// names are single characters to keep the payload small enough for
// memory-constrained devices.
type SyncRecord struct {
	SubjectID string `json:"c"`
	Name      string `json:"n"`
	CompanyID string `json:"e"`
	Slot      int    `json:"s"`
}

// SyncPayload is the full database snapshot sent on a sync pull.
type SyncPayload struct {
	SyncTimestamp time.Time    `json:"sync_timestamp"`
	TotalRecords  int          `json:"total_records"`
	Records       []SyncRecord `json:"records"`
}

// SyncCheck tells a terminal whether a new pull is worthwhile.
type SyncCheck struct {
	NeedsSync    bool      `json:"needs_sync"`
	LastModified time.Time `json:"last_modified"`
	UserCount    int       `json:"user_count"`
}

// Health is the fast probe terminals use for their online/offline decision.
type Health struct {
	Status     string          `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	TerminalID string          `json:"terminal_id"`
	APIVersion string          `json:"api_version"`
	Services   map[string]bool `json:"services"`
}

// LocationConfig anchors a terminal to its site.
type LocationConfig struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lng"`
	RadiusMeters int     `json:"radius"`
}

// HardwareConfig toggles the peripherals a terminal should drive.
type HardwareConfig struct {
	CameraEnabled      bool `json:"camera_enabled"`
	FingerprintEnabled bool `json:"fingerprint_enabled"`
	ProximityEnabled   bool `json:"proximity_enabled"`
	AudioEnabled       bool `json:"audio_enabled"`
}

// OperationConfig governs the verification loop on the device. Mode is one of
// hybrid, online_only or offline_only.
type OperationConfig struct {
	Mode                   string `json:"mode"`
	MaxFacialAttempts      int    `json:"max_facial_attempts"`
	MaxFingerprintAttempts int    `json:"max_fingerprint_attempts"`
	TimeoutSeconds         int    `json:"timeout_seconds"`
	AutoSyncIntervalSecs   int    `json:"auto_sync_interval"`
}

// DisplayConfig drives the terminal screen.
type DisplayConfig struct {
	Brightness     int    `json:"brightness"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Language       string `json:"language"`
}

// SyncConfig paces the terminal's batch uploads.
type SyncConfig struct {
	BatchSize         int `json:"batch_size"`
	RetryAttempts     int `json:"retry_attempts"`
	RetryDelaySeconds int `json:"retry_delay_seconds"`
}

// Config is the full operating configuration for one terminal.
type Config struct {
	TerminalID string          `json:"terminal_id"`
	Location   LocationConfig  `json:"location"`
	Hardware   HardwareConfig  `json:"hardware"`
	Operation  OperationConfig `json:"operation"`
	Display    DisplayConfig   `json:"display"`
	Sync       SyncConfig      `json:"sync"`
}

// ConfigEnvelope wraps a Config with the server time it was produced at.
type ConfigEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	Config    Config    `json:"config"`
}

// Verification types a terminal may report on an uploaded record.
const (
	VerificationFacial      = "facial"
	VerificationFingerprint = "fingerprint"
	VerificationManual      = "manual"
)

// BulkRecord is one offline record in a batch upload.
type BulkRecord struct {
	TerminalRecordID string    `json:"terminal_record_id"`
	SubjectID        string    `json:"subject_id"`
	EmployeeName     string    `json:"employee_name"`
	AccessTimestamp  time.Time `json:"access_timestamp"`
	Method           string    `json:"method"`
	VerificationType string    `json:"verification_type"`
	ConfidenceScore  float64   `json:"confidence_score"`
	LocationName     string    `json:"location_name"`
}

// BulkRequest is a batch of offline records from one terminal.
type BulkRequest struct {
	TerminalID    string       `json:"terminal_id"`
	Records       []BulkRecord `json:"records"`
	SyncTimestamp time.Time    `json:"sync_timestamp"`
}

// BulkRecordResult maps a terminal-local record id to its server outcome.
type BulkRecordResult struct {
	TerminalRecordID string `json:"terminal_record_id"`
	ServerRecordID   string `json:"server_record_id,omitempty"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`
}

// BulkSummary totals one batch upload.
type BulkSummary struct {
	TotalReceived         int `json:"total_received"`
	ProcessedSuccessfully int `json:"processed_successfully"`
	Failed                int `json:"failed"`
}

// BulkResult reports per-record and aggregate outcomes of a batch upload.
type BulkResult struct {
	SyncTimestamp time.Time          `json:"sync_timestamp"`
	TerminalID    string             `json:"terminal_id"`
	Summary       BulkSummary        `json:"summary"`
	Processed     []BulkRecordResult `json:"processed_records"`
	Failed        []BulkRecordResult `json:"failed_records"`
}

// StatusReport summarizes the ledger footprint of one terminal.
type StatusReport struct {
	TerminalID   string     `json:"terminal_id"`
	TotalRecords int        `json:"total_records"`
	RecordsToday int        `json:"records_today"`
	LastSync     *time.Time `json:"last_sync"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Enrollment request states.
const (
	RequestPending  = store.RequestPending
	RequestApproved = store.RequestApproved
	RequestRejected = store.RequestRejected
)

// EnrollmentRequest asks a terminal to capture biometrics for a newly
// registered subject. Created by the registration flow, consumed and
// resolved by the terminal. The type lives in the store package so the
// persistence layer does not import this package.
type EnrollmentRequest = store.EnrollmentRequest
