package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bioentry/internal/face"
	"bioentry/internal/ledger"
	"bioentry/internal/location"
	"bioentry/internal/policy"
	"bioentry/internal/session"
	"bioentry/internal/user"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

var tracer = otel.Tracer("bioentry/verification")

const defaultScanWorkers = 4

// Directory resolves registered subjects.
type Directory interface {
	Get(ctx context.Context, subjectID string) (user.User, error)
}

// Locations resolves a fix against a subject's geofences.
type Locations interface {
	Resolve(ctx context.Context, subjectID string, fix location.Fix) (location.Containment, location.Profile, error)
}

// Credentials issues and validates session credentials.
type Credentials interface {
	Issue(subjectID string, direction ledger.Direction, outOfBounds bool, locationName string, locationDistance int) (string, error)
	Validate(tokenString, subjectID string) (*session.Claims, error)
	TTL() time.Duration
}

// Gallery provides reference images.
type Gallery interface {
	Load(subjectID string) ([]byte, error)
	Subjects() ([]string, error)
}

// Records is the ledger dependency.
type Records interface {
	Append(ctx context.Context, record ledger.Record) (ledger.Record, error)
	ClassifyDirection(ctx context.Context, subjectID string) ledger.Direction
}

// Auditor receives completed verification outcomes. Implementations must not
// block the request path; delivery is best-effort.
type Auditor interface {
	RecordAppended(ctx context.Context, record ledger.Record)
}

// Service runs the verification flows.
type Service struct {
	directory   Directory
	locations   Locations
	credentials Credentials
	replay      session.ReplayGuard
	matcher     face.Matcher
	gallery     Gallery
	records     Records
	auditor     Auditor
	logger      *slog.Logger
	scanWorkers int
}

// Option configures a Service.
type Option func(*Service)

// WithScanWorkers bounds the 1:N scan fan-out.
func WithScanWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scanWorkers = n
		}
	}
}

// WithAuditor attaches an audit publisher.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		if a != nil {
			s.auditor = a
		}
	}
}

// NewService creates a verification Service.
func NewService(
	directory Directory,
	locations Locations,
	credentials Credentials,
	replay session.ReplayGuard,
	matcher face.Matcher,
	gallery Gallery,
	records Records,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		directory:   directory,
		locations:   locations,
		credentials: credentials,
		replay:      replay,
		matcher:     matcher,
		gallery:     gallery,
		records:     records,
		logger:      logger,
		scanWorkers: defaultScanWorkers,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Init checks geographic eligibility for a web verification and, when the
// subject is admitted, issues the session credential for the capture step.
// A fixed-profile denial returns Valid=false and writes nothing.
func (s *Service) Init(ctx context.Context, in InitInput) (InitResult, error) {
	ctx, span := tracer.Start(ctx, "verification.Init",
		trace.WithAttributes(attribute.String("subject_id", in.SubjectID)))
	defer span.End()

	direction, err := ledger.ParseDirection(in.Direction)
	if err != nil {
		return InitResult{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid direction")
	}

	u, err := s.directory.Get(ctx, in.SubjectID)
	if err != nil {
		return InitResult{}, err
	}
	if !u.Active {
		return InitResult{}, dErrors.New(dErrors.CodeForbidden, "subject is deactivated")
	}

	containment, _, err := s.locations.Resolve(ctx, in.SubjectID, location.Fix{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	})
	if err != nil {
		return InitResult{}, err
	}

	decision := policy.Evaluate(u.Mobility, containment)
	distance := int(containment.NearestDistance)

	if !decision.Admitted {
		span.SetAttributes(attribute.Bool("admitted", false))
		verificationsTotal.WithLabelValues("web_init", outcomeRejected).Inc()
		return InitResult{
			Valid:                  false,
			Message:                decision.Message,
			LocationName:           containment.NearestName,
			LocationDistanceMeters: distance,
		}, nil
	}

	credential, err := s.credentials.Issue(in.SubjectID, direction, decision.Flagged, containment.NearestName, distance)
	if err != nil {
		return InitResult{}, err
	}

	verificationsTotal.WithLabelValues("web_init", outcomeAccepted).Inc()
	return InitResult{
		Valid:                  true,
		Message:                decision.Message,
		OutOfBounds:            decision.Flagged,
		CommentRequired:        decision.CommentRequired,
		LocationName:           containment.NearestName,
		LocationDistanceMeters: distance,
		Credential:             credential,
		ExpiresInSeconds:       int(s.credentials.TTL().Seconds()),
	}, nil
}

// Face completes a web verification: validates the session credential,
// enforces the comment policy, consumes the credential and runs the face
// match, then appends the outcome. A matcher failure still appends an unverified record and
// returns a normal response, because attendance must stay auditable even
// when recognition cannot be resolved.
func (s *Service) Face(ctx context.Context, in FaceInput) (Result, error) {
	ctx, span := tracer.Start(ctx, "verification.Face",
		trace.WithAttributes(attribute.String("subject_id", in.SubjectID)))
	defer span.End()

	claims, err := s.credentials.Validate(in.Credential, in.SubjectID)
	if err != nil {
		return Result{}, err
	}

	u, err := s.directory.Get(ctx, in.SubjectID)
	if err != nil {
		return Result{}, err
	}

	if claims.OutOfBounds && u.Mobility == policy.MobilityMobile && in.Comment == "" {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "justification comment is required for out-of-bounds check-in")
	}

	reference, err := s.gallery.Load(in.SubjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "no reference image registered for this subject")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "load reference image")
	}

	// Consume last among the validations so a submission bounced for a
	// missing comment or reference can retry on the same credential; only
	// an attempt that reaches the matcher spends it.
	if err := s.replay.Consume(ctx, claims.ID, s.credentials.TTL()); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return Result{}, dErrors.New(dErrors.CodeUnauthorized, "session credential already used")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "consume session credential")
	}

	rec := ledger.Record{
		SubjectID:              in.SubjectID,
		Direction:              ledger.Direction(claims.Direction),
		IsRemoteClient:         true,
		CompanyID:              u.CompanyID,
		OutOfBounds:            claims.OutOfBounds,
		Comment:                in.Comment,
		LocationName:           claims.LocationName,
		LocationDistanceMeters: claims.LocationDistanceMeters,
	}

	message := "verification completed"
	match, matchErr := s.verifyTimed(ctx, in.Image, reference)
	if matchErr != nil {
		// Fail-open: the attempt is recorded unverified and the response
		// stays non-error.
		span.RecordError(matchErr)
		s.logger.Warn("face match failed, recording unverified",
			"subject_id", in.SubjectID, "error", matchErr)
		failure := fmt.Sprintf("face match unavailable: %v", matchErr)
		if rec.Comment == "" {
			rec.Comment = failure
		} else {
			rec.Comment = rec.Comment + " | " + failure
		}
		message = failure
		verificationsTotal.WithLabelValues("web_face", outcomeFailOpen).Inc()
	} else {
		rec.Verified = match.Match
		rec.MatchDistance = match.Distance
		if match.Match {
			verificationsTotal.WithLabelValues("web_face", outcomeAccepted).Inc()
		} else {
			message = "face did not match the registered reference"
			verificationsTotal.WithLabelValues("web_face", outcomeMismatch).Inc()
		}
	}

	stored, err := s.append(ctx, rec)
	if err != nil {
		return Result{}, err
	}

	return Result{
		RecordID:  stored.ID,
		SubjectID: stored.SubjectID,
		Verified:  stored.Verified,
		Distance:  stored.MatchDistance,
		Direction: stored.Direction,
		Timestamp: stored.Timestamp,
		Message:   message,
	}, nil
}

// Terminal runs a 1:1 verification submitted by an authenticated kiosk.
// Terminal submissions are in-bounds by definition; a matcher failure here
// is a hard error because the kiosk retries on its own.
func (s *Service) Terminal(ctx context.Context, in TerminalInput) (Result, error) {
	ctx, span := tracer.Start(ctx, "verification.Terminal",
		trace.WithAttributes(
			attribute.String("subject_id", in.SubjectID),
			attribute.String("terminal_id", in.TerminalID)))
	defer span.End()

	direction, err := ledger.ParseDirection(in.Direction)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid direction")
	}

	u, err := s.directory.Get(ctx, in.SubjectID)
	if err != nil {
		return Result{}, err
	}

	reference, err := s.gallery.Load(in.SubjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "no reference image registered for this subject")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "load reference image")
	}

	match, err := s.verifyTimed(ctx, in.Image, reference)
	if err != nil {
		span.SetStatus(codes.Error, "face match failed")
		verificationsTotal.WithLabelValues("terminal", outcomeError).Inc()
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "face match failed")
	}

	if match.Match {
		verificationsTotal.WithLabelValues("terminal", outcomeAccepted).Inc()
	} else {
		verificationsTotal.WithLabelValues("terminal", outcomeMismatch).Inc()
	}

	stored, err := s.append(ctx, ledger.Record{
		SubjectID:        in.SubjectID,
		Direction:        direction,
		Verified:         match.Match,
		MatchDistance:    match.Distance,
		SourceTerminalID: in.TerminalID,
		CompanyID:        u.CompanyID,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		RecordID:  stored.ID,
		SubjectID: stored.SubjectID,
		Verified:  stored.Verified,
		Distance:  stored.MatchDistance,
		Direction: stored.Direction,
		Timestamp: stored.Timestamp,
	}, nil
}

// TerminalAuto runs a 1:N verification: the probe is compared against every
// registered reference image and the closest accepted match wins. Direction
// is classified from the subject's latest record.
func (s *Service) TerminalAuto(ctx context.Context, in TerminalAutoInput) (Result, error) {
	ctx, span := tracer.Start(ctx, "verification.TerminalAuto",
		trace.WithAttributes(attribute.String("terminal_id", in.TerminalID)))
	defer span.End()

	subjects, err := s.gallery.Subjects()
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "list reference gallery")
	}
	galleryScanSize.Observe(float64(len(subjects)))
	if len(subjects) == 0 {
		verificationsTotal.WithLabelValues("terminal_auto", outcomeNoIdentity).Inc()
		return Result{}, dErrors.New(dErrors.CodeNotFound, "no registered subjects to match against")
	}

	type candidate struct {
		subjectID string
		result    face.MatchResult
	}

	var (
		mu      sync.Mutex
		matches []candidate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scanWorkers)
	for _, subjectID := range subjects {
		g.Go(func() error {
			reference, err := s.gallery.Load(subjectID)
			if err != nil {
				// A reference deleted mid-scan is not this request's problem.
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil
				}
				return err
			}

			result, err := s.matcher.Verify(gctx, in.Image, reference)
			if err != nil {
				if errors.Is(err, face.ErrNoFace) {
					return dErrors.New(dErrors.CodeBadRequest, "no face detected in image")
				}
				return err
			}
			if result.Match {
				mu.Lock()
				matches = append(matches, candidate{subjectID: subjectID, result: result})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return Result{}, err
		}
		verificationsTotal.WithLabelValues("terminal_auto", outcomeError).Inc()
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity scan failed")
	}

	if len(matches) == 0 {
		verificationsTotal.WithLabelValues("terminal_auto", outcomeNoIdentity).Inc()
		return Result{}, dErrors.New(dErrors.CodeNotFound, "no matching subject found")
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].result.Distance != matches[j].result.Distance {
			return matches[i].result.Distance < matches[j].result.Distance
		}
		return matches[i].subjectID < matches[j].subjectID
	})
	best := matches[0]

	u, err := s.directory.Get(ctx, best.subjectID)
	if err != nil {
		return Result{}, err
	}

	direction := s.records.ClassifyDirection(ctx, best.subjectID)

	verificationsTotal.WithLabelValues("terminal_auto", outcomeAccepted).Inc()
	stored, err := s.append(ctx, ledger.Record{
		SubjectID:        best.subjectID,
		Direction:        direction,
		Verified:         true,
		MatchDistance:    best.result.Distance,
		SourceTerminalID: in.TerminalID,
		CompanyID:        u.CompanyID,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		RecordID:  stored.ID,
		SubjectID: stored.SubjectID,
		Verified:  true,
		Distance:  stored.MatchDistance,
		Direction: stored.Direction,
		Timestamp: stored.Timestamp,
	}, nil
}

func (s *Service) verifyTimed(ctx context.Context, probe, reference []byte) (face.MatchResult, error) {
	start := time.Now()
	result, err := s.matcher.Verify(ctx, probe, reference)
	matchDurationSeconds.Observe(time.Since(start).Seconds())
	return result, err
}

func (s *Service) append(ctx context.Context, rec ledger.Record) (ledger.Record, error) {
	stored, err := s.records.Append(ctx, rec)
	if err != nil {
		return ledger.Record{}, err
	}
	if stored.OutOfBounds {
		outOfBoundsTotal.Inc()
	}
	if s.auditor != nil {
		s.auditor.RecordAppended(ctx, stored)
	}
	return stored, nil
}
