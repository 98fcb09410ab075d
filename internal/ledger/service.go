package ledger

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"bioentry/internal/policy"
	dErrors "bioentry/pkg/domain-errors"
)

// Store is the persistence dependency of the Service.
type Store interface {
	Append(ctx context.Context, record Record) error
	List(ctx context.Context, filters Filters) ([]Record, error)
	Latest(ctx context.Context, subjectID string) (Record, error)
}

// MobilityLookup resolves a subject's current mobility profile. Queries that
// filter by profile join live against this, so a profile change retroactively
// changes how past records appear under the filter.
type MobilityLookup interface {
	MobilityOf(ctx context.Context, subjectID string) (policy.Mobility, error)
}

// Service owns the attendance ledger: appends, queries, direction
// classification and out-of-bounds statistics.
type Service struct {
	store    Store
	profiles MobilityLookup
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for timestamp defaults, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a ledger Service.
func NewService(store Store, profiles MobilityLookup, opts ...ServiceOption) *Service {
	s := &Service{store: store, profiles: profiles, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Append stores a record, assigning a unique id and a UTC timestamp when
// absent. Append never rejects on business grounds; admission decisions
// happen before it is called.
func (s *Service) Append(ctx context.Context, record Record) (Record, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now().UTC()
	}
	if err := s.store.Append(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "append attendance record")
	}
	return record, nil
}

// Query returns records matching the filters in append order. The mobility
// filter is applied here, not in the store, because it needs the live
// profile of each record's subject. Subjects whose profile can no longer be
// resolved are excluded from mobility-filtered results.
func (s *Service) Query(ctx context.Context, filters Filters) ([]Record, error) {
	records, err := s.store.List(ctx, filters)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query attendance records")
	}
	if filters.Mobility == nil {
		return records, nil
	}

	out := make([]Record, 0, len(records))
	mobilities := map[string]policy.Mobility{}
	for _, r := range records {
		m, ok := mobilities[r.SubjectID]
		if !ok {
			m, err = s.profiles.MobilityOf(ctx, r.SubjectID)
			if err != nil {
				mobilities[r.SubjectID] = ""
				continue
			}
			mobilities[r.SubjectID] = m
		}
		if m == *filters.Mobility {
			out = append(out, r)
		}
	}
	return out, nil
}

// ClassifyDirection infers entry/exit from the subject's most recent record
// in append order: no prior record or a latest exit classifies as entry, a
// latest entry classifies as exit. Lookup failures deliberately fall back to
// entry so a degraded store never blocks a check-in.
func (s *Service) ClassifyDirection(ctx context.Context, subjectID string) Direction {
	latest, err := s.store.Latest(ctx, subjectID)
	if err != nil {
		// Covers both a first-time subject and a degraded store.
		return DirectionEntry
	}
	if latest.Direction == DirectionEntry {
		return DirectionExit
	}
	return DirectionEntry
}

// OutOfBoundsStats aggregates flagged records across the filtered set.
func (s *Service) OutOfBoundsStats(ctx context.Context, filters Filters) (OutOfBoundsStats, error) {
	records, err := s.Query(ctx, filters)
	if err != nil {
		return OutOfBoundsStats{}, err
	}

	stats := OutOfBoundsStats{
		Total:     len(records),
		ByProfile: map[string]int{},
		ByDay:     map[string]int{},
	}

	perSubject := map[string]int{}
	mobilities := map[string]policy.Mobility{}
	for _, r := range records {
		if !r.OutOfBounds {
			continue
		}
		stats.OutOfBoundsCount++
		stats.ByDay[r.Timestamp.UTC().Format("2006-01-02")]++
		perSubject[r.SubjectID]++

		m, ok := mobilities[r.SubjectID]
		if !ok {
			m, err = s.profiles.MobilityOf(ctx, r.SubjectID)
			if err != nil {
				m = ""
			}
			mobilities[r.SubjectID] = m
		}
		if m != "" {
			stats.ByProfile[string(m)]++
		}
	}

	if stats.Total > 0 {
		pct := float64(stats.OutOfBoundsCount) / float64(stats.Total) * 100
		stats.OutOfBoundsPercent = math.Round(pct*100) / 100
	}

	stats.TopSubjects = topSubjects(perSubject, 10)
	return stats, nil
}

func topSubjects(counts map[string]int, limit int) []SubjectCount {
	out := make([]SubjectCount, 0, len(counts))
	for subject, n := range counts {
		out = append(out, SubjectCount{SubjectID: subject, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
