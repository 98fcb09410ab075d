// Package verification orchestrates the attendance check-in pipeline:
// geofence eligibility, mobility policy, session credentials, the external
// face match and the ledger append.
package verification

import (
	"time"

	"bioentry/internal/ledger"
)

// InitInput is the first step of a web verification.
type InitInput struct {
	SubjectID string  `json:"subject_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Direction string  `json:"direction"`
}

// InitResult is the eligibility decision plus, when admitted, the session
// credential for the capture step.
type InitResult struct {
	Valid                  bool   `json:"valid"`
	Message                string `json:"message"`
	OutOfBounds            bool   `json:"out_of_bounds"`
	CommentRequired        bool   `json:"comment_required"`
	LocationName           string `json:"location_name,omitempty"`
	LocationDistanceMeters int    `json:"location_distance_meters"`
	Credential             string `json:"session_credential,omitempty"`
	ExpiresInSeconds       int    `json:"expires_in_seconds,omitempty"`
}

// FaceInput is the capture step of a web verification.
type FaceInput struct {
	SubjectID  string
	Credential string
	Image      []byte
	Comment    string
	UserAgent  string
}

// TerminalInput is a 1:1 terminal verification.
type TerminalInput struct {
	SubjectID  string
	TerminalID string
	Direction  string
	Image      []byte
}

// TerminalAutoInput is a 1:N terminal verification; the subject is found by
// scanning the reference gallery.
type TerminalAutoInput struct {
	TerminalID string
	Image      []byte
}

// Result is a completed verification outcome of any flow.
type Result struct {
	RecordID  string           `json:"record_id"`
	SubjectID string           `json:"subject_id"`
	Verified  bool             `json:"verified"`
	Distance  float64          `json:"distance"`
	Direction ledger.Direction `json:"direction"`
	Timestamp time.Time        `json:"timestamp"`
	Message   string           `json:"message,omitempty"`
}
