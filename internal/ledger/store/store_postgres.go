package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"bioentry/internal/ledger"
	"bioentry/pkg/platform/sentinel"
)

// PostgresStore persists attendance records in PostgreSQL. A bigserial seq
// column carries the append order; records are only ever inserted.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_records (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			subject_id TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			direction TEXT NOT NULL,
			verified BOOLEAN NOT NULL,
			match_distance DOUBLE PRECISION NOT NULL,
			source_terminal_id TEXT NOT NULL DEFAULT '',
			is_remote_client BOOLEAN NOT NULL,
			company_id TEXT NOT NULL,
			out_of_bounds BOOLEAN NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			location_name TEXT NOT NULL DEFAULT '',
			location_distance_meters INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS attendance_records_subject_idx
			ON attendance_records (subject_id, seq DESC);
		CREATE INDEX IF NOT EXISTS attendance_records_company_idx
			ON attendance_records (company_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, r ledger.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records (
			id, subject_id, ts, direction, verified, match_distance,
			source_terminal_id, is_remote_client, company_id,
			out_of_bounds, comment, location_name, location_distance_meters
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		r.ID, r.SubjectID, r.Timestamp, string(r.Direction), r.Verified, r.MatchDistance,
		r.SourceTerminalID, r.IsRemoteClient, r.CompanyID,
		r.OutOfBounds, r.Comment, r.LocationName, r.LocationDistanceMeters,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f ledger.Filters) ([]ledger.Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.SubjectID != "" {
		conds = append(conds, "subject_id = "+arg(f.SubjectID))
	}
	if f.CompanyID != "" {
		conds = append(conds, "company_id = "+arg(f.CompanyID))
	}
	if f.DateFrom != nil {
		conds = append(conds, "ts >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		conds = append(conds, "ts <= "+arg(*f.DateTo))
	}
	if f.Direction != nil {
		conds = append(conds, "direction = "+arg(string(*f.Direction)))
	}
	if f.OutOfBounds != nil {
		conds = append(conds, "out_of_bounds = "+arg(*f.OutOfBounds))
	}

	query := `
		SELECT id, subject_id, ts, direction, verified, match_distance,
			source_terminal_id, is_remote_client, company_id,
			out_of_bounds, comment, location_name, location_distance_meters
		FROM attendance_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Latest(ctx context.Context, subjectID string) (ledger.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, ts, direction, verified, match_distance,
			source_terminal_id, is_remote_client, company_id,
			out_of_bounds, comment, location_name, location_distance_meters
		FROM attendance_records
		WHERE subject_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, subjectID)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return ledger.Record{}, err
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ledger.Record, error) {
	var (
		r         ledger.Record
		ts        time.Time
		direction string
	)
	err := row.Scan(
		&r.ID, &r.SubjectID, &ts, &direction, &r.Verified, &r.MatchDistance,
		&r.SourceTerminalID, &r.IsRemoteClient, &r.CompanyID,
		&r.OutOfBounds, &r.Comment, &r.LocationName, &r.LocationDistanceMeters,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Record{}, err
		}
		return ledger.Record{}, fmt.Errorf("scan record: %w", err)
	}
	r.Timestamp = ts.UTC()
	r.Direction = ledger.Direction(direction)
	return r, nil
}
