// Package metrics holds the prometheus collectors of the voting core.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/sealedvote/types"
)

const namespace = "sealedvote"

var (
	// Ballots counts accepted ballots by outcome (fresh, overwrite).
	Ballots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ballots_total",
		Help:      "Accepted ballots by outcome.",
	}, []string{"outcome"})
	// BallotsRejected counts rejected ballots by reason.
	BallotsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ballots_rejected_total",
		Help:      "Rejected ballots by reason.",
	}, []string{"reason"})
	// Proposals counts lifecycle changes by resulting status.
	Proposals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proposals_total",
		Help:      "Proposal lifecycle changes by status.",
	}, []string{"status"})
	// Finalizations counts published results by disclosure policy.
	Finalizations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "finalizations_total",
		Help:      "Published results by disclosure policy.",
	}, []string{"disclosure"})
	// FinalizeDuration observes the time spent aggregating and disclosing.
	FinalizeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "finalize_duration_seconds",
		Help:      "Time spent finalizing a proposal.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{Ballots, BallotsRejected, Proposals, Finalizations, FinalizeDuration}
}

// Register adds every collector to reg. Collectors already registered are
// skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var reasons = []struct {
	err    error
	reason string
}{
	{types.ErrBadNullifier, "bad_nullifier"},
	{types.ErrNotEligible, "not_eligible"},
	{types.ErrOverwriteDisabled, "overwrite_disabled"},
	{types.ErrStaleBallot, "stale_ballot"},
	{types.ErrVectorSize, "vector_size"},
	{types.ErrInvalidState, "invalid_state"},
	{types.ErrNotFound, "not_found"},
	{types.ErrStorageUnavailable, "storage"},
}

// Reason returns the label used for err in rejection counters.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
