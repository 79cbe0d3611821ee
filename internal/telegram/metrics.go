// internal/telegram/metrics.go

package telegram

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_updates_total",
		Help: "Updates received by kind",
	}, []string{"kind"})

	handlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_handler_errors_total",
		Help: "Update handlers that returned an error or panicked",
	}, []string{"reason"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telegram_handler_duration_seconds",
		Help:    "Time spent handling one update",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)
