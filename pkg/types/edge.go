package types

// RecommendationTier is the discrete action derived from expected value.
type RecommendationTier string

const (
	TierNoBet     RecommendationTier = "no_bet"
	TierLean      RecommendationTier = "lean"
	TierBet       RecommendationTier = "bet"
	TierStrongBet RecommendationTier = "strong_bet"
	// TierNeedLine is returned when the request carried no line and the
	// market snapshot had none either.
	TierNeedLine RecommendationTier = "need_line"
)

// SideEdge holds the edge math for one side of the market. The raw numbers
// are always reported alongside the tier so the thresholds stay inspectable.
type SideEdge struct {
	Selection          Selection          `json:"selection"`
	Price              float64            `json:"price"`
	ImpliedProbability float64            `json:"implied_probability"`
	ModelProbability   float64            `json:"model_probability"`
	Edge               float64            `json:"edge"`
	ExpectedValue      float64            `json:"expected_value"`
	RawKelly           float64            `json:"raw_kelly"`
	KellyFraction      float64            `json:"kelly_fraction"`
	SuggestedStake     float64            `json:"suggested_stake"`
	Tier               RecommendationTier `json:"tier"`
}

// EdgeResult pairs the two sides of the evaluated market.
type EdgeResult struct {
	Sides []SideEdge `json:"sides"`
}

// Best returns the side with the higher expected value.
func (e *EdgeResult) Best() SideEdge {
	if len(e.Sides) == 0 {
		return SideEdge{Tier: TierNoBet}
	}
	best := e.Sides[0]
	for _, s := range e.Sides[1:] {
		if s.ExpectedValue > best.ExpectedValue {
			best = s
		}
	}
	return best
}
