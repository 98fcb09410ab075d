// Package store persists per-subject location profiles. All implementations
// normalize legacy document shapes on read so callers only ever see the
// canonical Profile.
package store

import (
	"context"

	"bioentry/internal/location"
)

// Store is the persistence contract for location profiles.
type Store interface {
	// Get returns the profile for a subject or sentinel.ErrNotFound.
	Get(ctx context.Context, subjectID string) (location.Profile, error)
	// Put writes the profile, replacing any existing document for the subject.
	Put(ctx context.Context, profile location.Profile) error
	// Delete removes the subject's profile. Deleting a missing profile is not
	// an error.
	Delete(ctx context.Context, subjectID string) error
}
