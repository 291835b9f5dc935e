package debate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DebatesTotal counts completed debates by declared winner.
var DebatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sharpline_debates_total",
		Help: "Total debates completed, labeled by winner",
	},
	[]string{"winner"},
)
