package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationsTotal tracks terminal evaluations by recommendation and
	// data quality.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharpline_evaluations_total",
		Help: "Total evaluations by recommendation tier and data quality",
	}, []string{"recommendation", "quality"})

	// EvaluationDurationSeconds tracks end-to-end request latency.
	EvaluationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharpline_evaluation_duration_seconds",
		Help:    "Duration of one full pipeline evaluation",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// RetriesTotal tracks pipeline retry transitions.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_pipeline_retries_total",
		Help: "Total retry transitions back to the fetch stage",
	})
)
