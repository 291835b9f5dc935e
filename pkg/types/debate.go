package types

// ArgumentCategory tags where an argument's evidence comes from.
type ArgumentCategory string

const (
	CategoryStatistical ArgumentCategory = "statistical"
	CategorySituational ArgumentCategory = "situational"
	CategoryMarket      ArgumentCategory = "market_efficiency"
	// CategoryStructural marks the always-present caution arguments
	// (sample size, regression to mean) that keep the debate two-sided.
	CategoryStructural ArgumentCategory = "structural"
)

// Argument is one typed claim with a strength in [0,1].
type Argument struct {
	Claim     string           `json:"claim"`
	Strength  float64          `json:"strength"`
	Rationale string           `json:"rationale"`
	Category  ArgumentCategory `json:"category"`
}

// DebateWinner declares which argument set carried the debate.
type DebateWinner string

const (
	WinnerSupporting DebateWinner = "supporting"
	WinnerOpposing   DebateWinner = "opposing"
	WinnerNeutral    DebateWinner = "neutral"
)

// DebateResult retains both argument sets verbatim along with the verdict.
type DebateResult struct {
	Supporting      []Argument   `json:"supporting"`
	Opposing        []Argument   `json:"opposing"`
	SupportStrength float64      `json:"support_strength"`
	OpposeStrength  float64      `json:"oppose_strength"`
	NetSignal       float64      `json:"net_signal"`
	Winner          DebateWinner `json:"winner"`
}
