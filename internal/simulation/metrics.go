package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SimulationDurationSeconds tracks how long one kernel run takes.
	SimulationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharpline_simulation_duration_seconds",
		Help:    "Duration of one Monte Carlo kernel run",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// SimulationDrawsTotal tracks total samples drawn across all runs.
	SimulationDrawsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_simulation_draws_total",
		Help: "Total number of Monte Carlo samples drawn",
	})
)
