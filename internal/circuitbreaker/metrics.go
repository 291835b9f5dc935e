package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardEnabled indicates whether the guard allows wager persistence.
	GuardEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_bankroll_guard_enabled",
		Help: "Whether the bankroll guard allows wager persistence (1=enabled, 0=disabled)",
	})

	// GuardBankroll tracks the last computed bankroll.
	GuardBankroll = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_bankroll_guard_bankroll_units",
		Help: "Last computed bankroll in units (starting bankroll plus realized profit)",
	})

	// GuardDisableThreshold tracks the current threshold for suspending persistence.
	GuardDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_bankroll_guard_disable_threshold_units",
		Help: "Current bankroll threshold for suspending wager persistence (dynamically calculated)",
	})

	// GuardEnableThreshold tracks the current threshold for resuming persistence.
	GuardEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_bankroll_guard_enable_threshold_units",
		Help: "Current bankroll threshold for resuming wager persistence (with hysteresis)",
	})

	// GuardAvgStake tracks the rolling average stake size.
	GuardAvgStake = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_bankroll_guard_avg_stake_units",
		Help: "Rolling average stake size from recent wagers (used for threshold calculation)",
	})

	// GuardStateChanges tracks the number of times the guard changed state.
	GuardStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_bankroll_guard_state_changes_total",
		Help: "Total number of times the bankroll guard changed state (enabled/disabled)",
	})

	// GuardCheckDuration tracks the time taken to recompute the bankroll.
	GuardCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharpline_bankroll_guard_check_duration_seconds",
		Help:    "Time taken to recompute the bankroll from recent settlements",
		Buckets: prometheus.DefBuckets,
	})
)
