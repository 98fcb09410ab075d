// Package ledger is the append-only record of verification outcomes. It is
// the sole writer of attendance records; business rejections happen upstream
// before Append is called.
package ledger

import (
	"fmt"
	"time"

	"bioentry/internal/policy"
)

// Direction says whether a record is a check-in or a check-out.
type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

// ParseDirection validates a direction value.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionEntry, DirectionExit:
		return Direction(s), nil
	}
	return "", fmt.Errorf("direction must be %q or %q", DirectionEntry, DirectionExit)
}

// Record is one verification outcome. Records are created exactly once per
// verification attempt and never mutated or deleted.
type Record struct {
	ID                     string    `json:"id"`
	SubjectID              string    `json:"subject_id"`
	Timestamp              time.Time `json:"timestamp"`
	Direction              Direction `json:"direction"`
	Verified               bool      `json:"verified"`
	MatchDistance          float64   `json:"match_distance"`
	SourceTerminalID       string    `json:"source_terminal_id,omitempty"`
	IsRemoteClient         bool      `json:"is_remote_client"`
	CompanyID              string    `json:"company_id"`
	OutOfBounds            bool      `json:"out_of_bounds"`
	Comment                string    `json:"comment"`
	LocationName           string    `json:"location_name"`
	LocationDistanceMeters int       `json:"location_distance_meters"`
}

// Filters narrow a ledger query. Nil/zero fields impose no constraint; set
// fields combine conjunctively.
type Filters struct {
	SubjectID   string
	CompanyID   string
	DateFrom    *time.Time
	DateTo      *time.Time
	Direction   *Direction
	OutOfBounds *bool
	// Mobility joins against the subject's CURRENT profile, not the profile
	// at append time. A later profile change retroactively changes which
	// records this filter matches.
	Mobility *policy.Mobility
}

// SubjectCount pairs a subject with an out-of-bounds record count.
type SubjectCount struct {
	SubjectID string `json:"subject_id"`
	Count     int    `json:"count"`
}

// OutOfBoundsStats aggregates flagged records over a filtered record set.
type OutOfBoundsStats struct {
	Total              int            `json:"total"`
	OutOfBoundsCount   int            `json:"out_of_bounds_count"`
	OutOfBoundsPercent float64        `json:"out_of_bounds_percent"`
	ByProfile          map[string]int `json:"by_profile"`
	ByDay              map[string]int `json:"by_day"`
	TopSubjects        []SubjectCount `json:"top_subjects"`
}
