package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bioentry_verifications_total",
		Help: "Verification attempts by flow and outcome",
	}, []string{"flow", "outcome"})

	outOfBoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bioentry_out_of_bounds_records_total",
		Help: "Records appended with the out-of-bounds flag set",
	})

	matchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bioentry_face_match_duration_seconds",
		Help:    "Latency of external face match calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	galleryScanSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bioentry_identity_scan_candidates",
		Help:    "Number of reference images scanned per 1:N verification",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})
)

const (
	outcomeAccepted   = "accepted"
	outcomeRejected   = "rejected"
	outcomeMismatch   = "mismatch"
	outcomeFailOpen   = "fail_open"
	outcomeError      = "error"
	outcomeNoIdentity = "no_identity"
)
