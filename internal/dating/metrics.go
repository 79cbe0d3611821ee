package dating

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dating_reactions_total",
			Help: "Reaction toggles by kind and direction",
		},
		[]string{"kind", "action"},
	)

	matchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dating_matches_total",
			Help: "Reactions that became mutual",
		},
		[]string{"kind"},
	)
)

func recordToggle(r *ToggleResult) {
	action := "removed"
	if r.Added {
		action = "added"
	}
	reactionsTotal.WithLabelValues(string(r.Kind), action).Inc()
	if r.Mutual {
		matchesTotal.WithLabelValues(string(r.Kind)).Inc()
	}
}
