package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WagersCreatedTotal tracks persisted wagers by bet type.
	WagersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharpline_wagers_created_total",
		Help: "Total wagers persisted to the ledger",
	}, []string{"bet_type"})

	// SettlementsTotal tracks settled wagers by outcome.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharpline_settlements_total",
		Help: "Total wagers settled",
	}, []string{"outcome"})

	// SettlementErrorsTotal tracks wagers that errored during a pass.
	SettlementErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_settlement_errors_total",
		Help: "Total settlement attempts that failed with an error",
	})

	// SettlementPassDurationSeconds tracks full settlement pass duration.
	SettlementPassDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharpline_settlement_pass_duration_seconds",
		Help:    "Duration of one settlement pass over pending wagers",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	// LearningRulesCreatedTotal tracks rules induced by the analyzer.
	LearningRulesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_learning_rules_created_total",
		Help: "Total learning rules induced from settled wagers",
	})
)
