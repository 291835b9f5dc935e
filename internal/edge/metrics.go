package edge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts recommendations by tier.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharpline_edge_recommendations_total",
			Help: "Total recommendations produced, labeled by tier",
		},
		[]string{"tier"},
	)

	// EdgeObserved tracks the model-vs-market edge of the best side.
	EdgeObserved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharpline_edge_observed",
		Help:    "Model probability minus implied probability for the best side",
		Buckets: []float64{-0.10, -0.05, -0.02, 0, 0.02, 0.05, 0.08, 0.12, 0.20},
	})
)
