// Package metrics exposes the gateway's Prometheus counters
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshOutcomes counts silent-refresh attempts by how they ended:
	// refreshed, rejected, expired, unavailable
	RefreshOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tabletap",
			Subsystem: "session",
			Name:      "refresh_outcomes_total",
			Help:      "Silent token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	// GuardDecisions counts route guard decisions by kind
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tabletap",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route guard decisions by kind",
		},
		[]string{"decision"},
	)

	// PushEvents counts events received on the upstream push channel
	PushEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tabletap",
			Subsystem: "push",
			Name:      "events_total",
			Help:      "Push channel events by type",
		},
		[]string{"event"},
	)
)
