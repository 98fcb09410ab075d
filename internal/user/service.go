package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"bioentry/internal/policy"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/sentinel"
)

// Store is the persistence dependency of the Service.
type Store interface {
	Get(ctx context.Context, subjectID string) (User, error)
	Put(ctx context.Context, u User) error
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, subjectID string) error
}

// Service owns user registration and mobility profile management.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for registration timestamps, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a user Service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	SubjectID string
	Name      string
	CompanyID string
	Email     string
	Phone     string
	Mobility  string
}

// Register creates a new user. Mobility defaults to fixed when omitted, the
// strictest profile. Registering an already known subject fails with a
// conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.Name = strings.TrimSpace(in.Name)
	if in.SubjectID == "" {
		return User{}, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	if in.Name == "" {
		return User{}, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}

	mobility := policy.MobilityFixed
	if in.Mobility != "" {
		m, err := policy.ParseMobility(in.Mobility)
		if err != nil {
			return User{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid mobility profile")
		}
		mobility = m
	}

	if _, err := s.store.Get(ctx, in.SubjectID); err == nil {
		return User{}, dErrors.New(dErrors.CodeConflict, "subject already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "check existing user")
	}

	u := User{
		SubjectID:    in.SubjectID,
		Name:         in.Name,
		CompanyID:    strings.TrimSpace(in.CompanyID),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Mobility:     mobility,
		Active:       true,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, u); err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "store user")
	}
	return u, nil
}

// Get returns a user by subject id.
func (s *Service) Get(ctx context.Context, subjectID string) (User, error) {
	u, err := s.store.Get(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "get user")
	}
	return u, nil
}

// List returns all users ordered by subject id.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return users, nil
}

// UpdateMobility reassigns a user's mobility profile. The change applies
// immediately to future verifications and to mobility-filtered queries over
// past records.
func (s *Service) UpdateMobility(ctx context.Context, subjectID, mobility string) (User, error) {
	m, err := policy.ParseMobility(mobility)
	if err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid mobility profile")
	}

	u, err := s.Get(ctx, subjectID)
	if err != nil {
		return User{}, err
	}

	u.Mobility = m
	if err := s.store.Put(ctx, u); err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "store user")
	}
	return u, nil
}

// SetActive toggles whether a user may verify.
func (s *Service) SetActive(ctx context.Context, subjectID string, active bool) (User, error) {
	u, err := s.Get(ctx, subjectID)
	if err != nil {
		return User{}, err
	}

	u.Active = active
	if err := s.store.Put(ctx, u); err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "store user")
	}
	return u, nil
}

// MobilityOf resolves a subject's current mobility profile. It satisfies the
// ledger's profile lookup for live-joined mobility queries.
func (s *Service) MobilityOf(ctx context.Context, subjectID string) (policy.Mobility, error) {
	u, err := s.store.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "get user")
	}
	return u.Mobility, nil
}
