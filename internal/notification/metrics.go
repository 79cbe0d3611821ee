// internal/notification/metrics.go

package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	mailingSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailing_sends_total",
			Help: "Mailing deliveries by result",
		},
		[]string{"result"},
	)

	mailingJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailing_jobs_total",
			Help: "Mailing jobs by outcome",
		},
		[]string{"outcome"},
	)

	mailingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailing_duration_seconds",
			Help:    "Wall time of a complete mailing",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailing_circuit_breaker_state",
			Help: "Telegram send breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
