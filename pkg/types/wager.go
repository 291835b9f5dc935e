package types

import "time"

// WagerOutcome is the settlement state of a wager. Once set to a terminal
// value it is final.
type WagerOutcome string

const (
	OutcomePending WagerOutcome = "PENDING"
	OutcomeWin     WagerOutcome = "WIN"
	OutcomeLoss    WagerOutcome = "LOSS"
	OutcomePush    WagerOutcome = "PUSH"
)

// ReasoningTrace is the full decision trail persisted with a wager.
type ReasoningTrace struct {
	Projection *Projection       `json:"projection,omitempty"`
	Simulation *SimulationResult `json:"simulation,omitempty"`
	Edge       *EdgeResult       `json:"edge,omitempty"`
	Debate     *DebateResult     `json:"debate,omitempty"`
}

// Wager is the durable record of one recommendation. It is created with
// outcome PENDING and mutated exactly once by settlement; rows are never
// deleted.
type Wager struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EventID   string    `json:"event_id"`
	BetType   BetType   `json:"bet_type"`
	Selection Selection `json:"selection"`
	// Stat is the player stat market for props, empty otherwise.
	Stat string `json:"stat,omitempty"`
	// Description names the selection for humans, e.g. "OVER 220.5 LAL@BOS".
	Description string  `json:"description"`
	Line        float64 `json:"line"`
	Price       float64 `json:"price"`

	Confidence    float64            `json:"confidence"`
	PredictedEdge float64            `json:"predicted_edge"`
	Tier          RecommendationTier `json:"tier"`
	Stake         float64            `json:"stake"`

	Trace ReasoningTrace `json:"trace"`

	Outcome        WagerOutcome `json:"outcome"`
	RealizedValue  float64      `json:"realized_value"`
	RealizedMargin float64      `json:"realized_margin"`
	Profit         float64      `json:"profit"`
	SettledAt      *time.Time   `json:"settled_at,omitempty"`
}

// Settled reports whether the wager has a terminal outcome.
func (w *Wager) Settled() bool {
	return w.Outcome != "" && w.Outcome != OutcomePending
}

// CalibrationBucket accumulates settlement results for one confidence range
// [Low, High). Totals only ever grow.
type CalibrationBucket struct {
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Pushes int     `json:"pushes"`
	// CalibrationError is |stated confidence midpoint - realized win rate|.
	CalibrationError float64 `json:"calibration_error"`
}

// Decided returns the number of win/loss settlements (pushes excluded).
func (b *CalibrationBucket) Decided() int {
	return b.Wins + b.Losses
}

// WinRate returns the realized win rate over decided wagers.
func (b *CalibrationBucket) WinRate() float64 {
	decided := b.Decided()
	if decided == 0 {
		return 0
	}
	return float64(b.Wins) / float64(decided)
}

// LearningRule is an induced adjustment derived from settled wager patterns.
// Rules are append-only: they can be deactivated but never removed, so the
// audit trail of what the analyzer believed stays intact.
type LearningRule struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Condition  string    `json:"condition"`
	Adjustment float64   `json:"adjustment"`
	Evidence   string    `json:"evidence"`
	Triggers   int       `json:"triggers"`
	Active     bool      `json:"active"`
	// ThresholdVersion records which threshold table produced the rule.
	ThresholdVersion string `json:"threshold_version"`
}
