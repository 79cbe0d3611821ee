// internal/recommend/metrics.go

package recommend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_batches_total",
			Help: "Recommendation batches returned, by pool",
		},
		[]string{"pool"},
	)

	candidatesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_candidates_total",
			Help: "Candidates returned across all batches, by pool",
		},
		[]string{"pool"},
	)

	poolsExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_exhausted_total",
			Help: "Requests that found every match already shown",
		},
		[]string{"pool"},
	)

	composeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_failures_total",
			Help: "Recommendation requests that could not be computed",
		},
		[]string{"pool", "reason"},
	)

	composeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_compose_duration_seconds",
			Help:    "Time spent composing a candidate batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pool"},
	)
)

func RecordBatch(pool PoolKind, b *Batch) {
	if b.Exhausted {
		poolsExhausted.WithLabelValues(string(pool)).Inc()
		return
	}
	batchesServed.WithLabelValues(string(pool)).Inc()
	candidatesServed.WithLabelValues(string(pool)).Add(float64(len(b.Candidates)))
}

func RecordFailure(pool PoolKind, reason string) {
	composeFailures.WithLabelValues(string(pool), reason).Inc()
}

func RecordComposeDuration(pool PoolKind, d time.Duration) {
	composeDuration.WithLabelValues(string(pool)).Observe(d.Seconds())
}
