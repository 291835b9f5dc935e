package types

// Adjustment is one named, signed component applied to a projection.
// Every correction is recorded here rather than folded silently into the
// total, so the final number can be audited term by term.
type Adjustment struct {
	Label     string  `json:"label"`
	Points    float64 `json:"points"`
	Rationale string  `json:"rationale"`
}

// Projection is the point estimate fed into the simulation kernel.
// For team markets both sides carry a mean and standard deviation; player
// props use the Home slot only.
type Projection struct {
	HomeMean   float64 `json:"home_mean"`
	AwayMean   float64 `json:"away_mean"`
	HomeStdDev float64 `json:"home_std_dev"`
	AwayStdDev float64 `json:"away_std_dev"`

	// Total is the projected combined score (or projected stat value for
	// player props) after all adjustments.
	Total float64 `json:"total"`

	// Baseline is the blended multi-window estimate before adjustments.
	Baseline    float64      `json:"baseline"`
	Adjustments []Adjustment `json:"adjustments"`

	// SampleGames is the largest window behind the blend; when it falls
	// below the configured minimum the projection is flagged and downstream
	// confidence degrades rather than aborting.
	SampleGames        int  `json:"sample_games"`
	InsufficientSample bool `json:"insufficient_sample"`
}

// AdjustmentSum returns the net points applied on top of the baseline.
func (p *Projection) AdjustmentSum() float64 {
	sum := 0.0
	for _, a := range p.Adjustments {
		sum += a.Points
	}
	return sum
}
