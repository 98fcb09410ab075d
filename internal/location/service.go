package location

import (
	"context"
	"errors"
	"fmt"

	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/sentinel"
)

// Store is the persistence dependency of the Service. It matches
// location/store.Store; redeclared here so the service can be tested with
// lightweight fakes.
type Store interface {
	Get(ctx context.Context, subjectID string) (Profile, error)
	Put(ctx context.Context, profile Profile) error
	Delete(ctx context.Context, subjectID string) error
}

// Service manages per-subject geofence sets and resolves fixes against them.
type Service struct {
	store Store
}

// NewService creates a location Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create registers the initial profile for a subject.
func (s *Service) Create(ctx context.Context, profile Profile) error {
	if profile.SubjectID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	if err := s.store.Put(ctx, profile); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store location profile")
	}
	return nil
}

// Get returns the canonical profile for a subject.
func (s *Service) Get(ctx context.Context, subjectID string) (Profile, error) {
	p, err := s.store.Get(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Profile{}, dErrors.New(dErrors.CodeNotFound, "no location registered for this subject")
	}
	if err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "load location profile")
	}
	return p, nil
}

// Resolve loads a subject's geofences and resolves containment for the fix.
func (s *Service) Resolve(ctx context.Context, subjectID string, fix Fix) (Containment, Profile, error) {
	p, err := s.Get(ctx, subjectID)
	if err != nil {
		return Containment{}, Profile{}, err
	}
	return ResolveContainment(fix, p.Geofences), p, nil
}

// AddFence appends a geofence to the subject's set. Insertion order is
// preserved; it is the display priority, not the containment priority.
func (s *Service) AddFence(ctx context.Context, subjectID string, fence Geofence) error {
	if fence.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "geofence name is required")
	}
	if fence.RadiusMeters <= 0 {
		fence.RadiusMeters = DefaultRadiusMeters
	}

	p, err := s.Get(ctx, subjectID)
	if err != nil {
		return err
	}
	p.Geofences = append(p.Geofences, fence)

	if err := s.store.Put(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store location profile")
	}
	return nil
}

// RemoveFence deletes the geofence at index. The last remaining geofence can
// never be removed; a subject with any geofences must keep at least one.
func (s *Service) RemoveFence(ctx context.Context, subjectID string, index int) error {
	p, err := s.Get(ctx, subjectID)
	if err != nil {
		return err
	}

	if index < 0 || index >= len(p.Geofences) {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid geofence index %d", index))
	}
	if len(p.Geofences) <= 1 {
		return dErrors.New(dErrors.CodeBadRequest, "cannot remove the only geofence")
	}

	p.Geofences = append(p.Geofences[:index], p.Geofences[index+1:]...)

	if err := s.store.Put(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store location profile")
	}
	return nil
}
