package types

import "time"

// Evaluation is the structured answer for one request. Every terminal state
// of the pipeline produces one of these, including degraded and unavailable
// outcomes, so callers can always render something.
type Evaluation struct {
	ID        string            `json:"id"`
	Request   EvaluationRequest `json:"request"`
	CreatedAt time.Time         `json:"created_at"`

	Context    *Context          `json:"context,omitempty"`
	Projection *Projection       `json:"projection,omitempty"`
	Simulation *SimulationResult `json:"simulation,omitempty"`
	Edge       *EdgeResult       `json:"edge,omitempty"`
	Debate     *DebateResult     `json:"debate,omitempty"`

	Recommendation RecommendationTier `json:"recommendation"`
	Selection      Selection          `json:"selection,omitempty"`
	Confidence     float64            `json:"confidence"`
	Quality        DataQuality        `json:"quality"`
	Errors         []string           `json:"errors,omitempty"`
	Retries        int                `json:"retries"`
}
