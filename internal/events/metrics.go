// internal/events/metrics.go

package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "events_created_total",
	Help: "Events added through the admin API",
})
