// Package user manages registered subjects and their mobility profiles.
package user

import (
	"time"

	"bioentry/internal/policy"
)

// User is a registered subject. SubjectID is the national document number
// the face gallery and the ledger key off.
type User struct {
	SubjectID    string          `json:"subject_id"`
	Name         string          `json:"name"`
	CompanyID    string          `json:"company_id"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Mobility     policy.Mobility `json:"mobility"`
	Active       bool            `json:"active"`
	RegisteredAt time.Time       `json:"registered_at"`
}
