// Package policy decides whether a check-in is admissible for a subject's
// mobility profile and whether it must be flagged or justified.
package policy

import (
	"fmt"

	"bioentry/internal/location"
)

// Mobility is the per-subject enforcement profile for geofence checks.
type Mobility string

const (
	// MobilityFixed subjects must be inside one of their geofences.
	MobilityFixed Mobility = "fixed"
	// MobilityMobile subjects are always admitted, but an out-of-bounds
	// check-in is flagged and requires a justification comment.
	MobilityMobile Mobility = "mobile"
	// MobilityFree subjects are always admitted; out-of-bounds check-ins are
	// flagged for reporting only.
	MobilityFree Mobility = "free"
)

// ParseMobility validates a mobility profile value.
func ParseMobility(s string) (Mobility, error) {
	switch Mobility(s) {
	case MobilityFixed, MobilityMobile, MobilityFree:
		return Mobility(s), nil
	}
	return "", fmt.Errorf("mobility profile must be %q, %q or %q", MobilityFixed, MobilityMobile, MobilityFree)
}

// Decision is the outcome of evaluating a containment result under a
// mobility profile.
type Decision struct {
	// Admitted reports whether the check-in may proceed at all. A false value
	// is a hard denial: no record is written.
	Admitted bool
	// Flagged marks the eventual record as out-of-bounds.
	Flagged bool
	// CommentRequired means the submission must carry a non-empty
	// justification comment. The presence check happens above this engine.
	CommentRequired bool
	// Message describes the outcome for the client.
	Message string
}

// Evaluate maps a mobility profile and a containment result to a Decision.
// It is pure; callers enforce CommentRequired and handle denial themselves.
func Evaluate(profile Mobility, c location.Containment) Decision {
	switch profile {
	case MobilityFixed:
		if c.Inside {
			return Decision{Admitted: true, Message: "location accepted"}
		}
		return Decision{
			Message: fmt.Sprintf("outside permitted range (%d m)", int(c.NearestDistance)),
		}

	case MobilityMobile:
		if c.Inside {
			return Decision{Admitted: true, Message: "location accepted"}
		}
		return Decision{
			Admitted:        true,
			Flagged:         true,
			CommentRequired: true,
			Message:         fmt.Sprintf("outside known locations (%d m from %s), justification required", int(c.NearestDistance), c.NearestName),
		}

	case MobilityFree:
		if c.Inside {
			return Decision{Admitted: true, Message: "location accepted"}
		}
		return Decision{
			Admitted: true,
			Flagged:  true,
			Message:  fmt.Sprintf("outside known locations (%d m from %s)", int(c.NearestDistance), c.NearestName),
		}
	}

	// Unknown profiles deny; stored profiles are validated on write so this
	// only happens on corrupted data.
	return Decision{Message: fmt.Sprintf("unknown mobility profile %q", profile)}
}
