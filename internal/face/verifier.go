package face

import (
	"context"
	"errors"
	"log/slog"
)

// Verifier wraps a Matcher with an orientation fallback: when the matcher
// cannot find a face in the probe, the probe is retried rotated by 90, 180
// and 270 degrees before giving up. Phone uploads arrive sideways often
// enough that this recovers a meaningful share of attempts.
type Verifier struct {
	matcher Matcher
	logger  *slog.Logger
}

// NewVerifier creates a Verifier around a matcher.
func NewVerifier(matcher Matcher, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{matcher: matcher, logger: logger}
}

// Verify compares probe against reference, retrying rotated probes when no
// face is detected. Any other matcher error aborts immediately.
func (v *Verifier) Verify(ctx context.Context, probe, reference []byte) (MatchResult, error) {
	result, err := v.matcher.Verify(ctx, probe, reference)
	if err == nil || !errors.Is(err, ErrNoFace) {
		return result, err
	}

	for _, quarterTurns := range []int{1, 2, 3} {
		rotated, rotateErr := RotateJPEG(probe, quarterTurns)
		if rotateErr != nil {
			// An undecodable probe will not improve with rotation.
			return MatchResult{}, err
		}

		result, retryErr := v.matcher.Verify(ctx, rotated, reference)
		if retryErr == nil {
			v.logger.Debug("face detected after rotation", "quarter_turns", quarterTurns)
			return result, nil
		}
		if !errors.Is(retryErr, ErrNoFace) {
			return MatchResult{}, retryErr
		}
	}
	return MatchResult{}, err
}
