// Package store persists terminal enrollment requests.
package store

import (
	"context"
	"time"
)

// Enrollment request states.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// EnrollmentRequest asks a terminal to capture biometrics for a newly
// registered subject. Created by the registration flow, consumed and
// resolved by the terminal.
type EnrollmentRequest struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	Name        string     `json:"name"`
	TerminalID  string     `json:"terminal_id"`
	State       string     `json:"state"`
	RequestedAt time.Time  `json:"requested_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Store is the persistence dependency for enrollment requests.
//
// Get returns sentinel.ErrNotFound when the request id is unknown. ListFor
// returns requests for one terminal ordered by request time.
type Store interface {
	Create(ctx context.Context, req EnrollmentRequest) error
	Get(ctx context.Context, id string) (EnrollmentRequest, error)
	Put(ctx context.Context, req EnrollmentRequest) error
	ListFor(ctx context.Context, terminalID string) ([]EnrollmentRequest, error)
}
