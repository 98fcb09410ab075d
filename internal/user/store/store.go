// Package store persists user profiles.
package store

import (
	"context"

	"bioentry/internal/user"
)

// Store is the persistence contract for user profiles.
type Store interface {
	// Get returns a user by subject id, or sentinel.ErrNotFound.
	Get(ctx context.Context, subjectID string) (user.User, error)
	// Put writes a user, replacing any previous state for the subject.
	Put(ctx context.Context, u user.User) error
	// List returns all users, ordered by subject id.
	List(ctx context.Context) ([]user.User, error)
	// Delete removes a user. Deleting a missing user is not an error.
	Delete(ctx context.Context, subjectID string) error
}
