package oddsfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedConnected is 1 while the odds feed connection is live.
	FeedConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_oddsfeed_connected",
		Help: "Whether the odds feed WebSocket is connected",
	})

	// SubscribedEvents tracks the current subscription count.
	SubscribedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharpline_oddsfeed_subscribed_events",
		Help: "Number of events currently subscribed on the odds feed",
	})

	// UpdatesReceivedTotal counts applied odds updates by bet type.
	UpdatesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharpline_oddsfeed_updates_received_total",
		Help: "Total odds updates mirrored into the cache",
	}, []string{"bet_type"})

	// UpdatesDroppedTotal counts discarded feed messages by reason.
	UpdatesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharpline_oddsfeed_updates_dropped_total",
		Help: "Total odds feed messages dropped",
	}, []string{"reason"})

	// ReconnectAttemptsTotal counts reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_oddsfeed_reconnect_attempts_total",
		Help: "Total odds feed reconnection attempts",
	})

	// ReconnectFailuresTotal counts failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharpline_oddsfeed_reconnect_failures_total",
		Help: "Total odds feed reconnection failures",
	})

	// ConnectionDuration observes how long connections stay up.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharpline_oddsfeed_connection_duration_seconds",
		Help:    "Duration of odds feed connections before dropping",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
)
