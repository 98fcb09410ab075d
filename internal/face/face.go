// Package face defines the facial verification contract and the orientation
// fallback wrapper around it. The heavy recognition work runs in an external
// matcher service; this package only moves images and decisions.
package face

import (
	"context"
	"errors"
)

// ErrNoFace reports that the matcher found no detectable face in the probe
// image. Callers may retry with a corrected orientation.
var ErrNoFace = errors.New("no face detected in image")

// MatchResult is one 1:1 comparison outcome.
type MatchResult struct {
	Match     bool    `json:"match"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
}

// Matcher compares a probe image against a reference image.
type Matcher interface {
	Verify(ctx context.Context, probe, reference []byte) (MatchResult, error)
}
