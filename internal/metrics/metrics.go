// Package metrics defines the Prometheus collectors for persona generation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts finished runs by outcome ("complete" or an error kind).
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_runs_total",
			Help: "Total number of generation runs by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveRuns is the number of runs currently in flight.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "persona_active_runs",
			Help: "Number of generation runs in flight",
		},
	)

	// PersonasGenerated counts personas appended to a run.
	PersonasGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persona_generated_total",
			Help: "Total number of personas generated",
		},
	)

	// CallDuration observes generation client call latency.
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persona_generation_call_duration_seconds",
			Help:    "Duration of generation client calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"operation", "status"},
	)

	// ActiveSessions is the number of interactive sessions held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "persona_active_sessions",
			Help: "Number of interactive sessions held in memory",
		},
	)
)
