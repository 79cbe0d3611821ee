// internal/support/metrics.go

package support

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_tickets_opened_total",
			Help: "Support tickets opened by users",
		},
	)

	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_messages_total",
			Help: "Support messages by author",
		},
		[]string{"author"},
	)
)
