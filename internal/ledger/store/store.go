// Package store persists attendance records. Implementations must keep
// insertion order observable: List returns records in append order and Latest
// returns the most recently appended record for a subject.
package store

import (
	"context"

	"bioentry/internal/ledger"
)

// Store is the persistence contract for the attendance ledger.
type Store interface {
	// Append writes a record. Concurrent appends may interleave but must
	// never lose or corrupt previously written records.
	Append(ctx context.Context, record ledger.Record) error
	// List returns records matching the filters in append order. The
	// Mobility filter is resolved above the store and must be ignored here.
	List(ctx context.Context, filters ledger.Filters) ([]ledger.Record, error)
	// Latest returns the most recently appended record for a subject, or
	// sentinel.ErrNotFound when the subject has none.
	Latest(ctx context.Context, subjectID string) (ledger.Record, error)
}
