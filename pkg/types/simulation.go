package types

// PercentileBands holds the standard percentile cuts of the simulated
// total distribution.
type PercentileBands struct {
	P5  float64 `json:"p5"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// SimulationResult summarizes the Monte Carlo run against one line.
// POver + PUnder + PPush always sum to 1 within floating tolerance.
type SimulationResult struct {
	Draws  int     `json:"draws"`
	Seed   int64   `json:"seed"`
	Seeded bool    `json:"seeded"`
	Line   float64 `json:"line"`

	POver  float64 `json:"p_over"`
	PUnder float64 `json:"p_under"`
	PPush  float64 `json:"p_push"`

	// Binomial standard errors of the estimated probabilities.
	StdErrOver  float64 `json:"std_err_over"`
	StdErrUnder float64 `json:"std_err_under"`
	StdErrPush  float64 `json:"std_err_push"`

	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`

	Percentiles PercentileBands `json:"percentiles"`

	// OvertimeCount is how many draws triggered the discrete overtime event.
	OvertimeCount int `json:"overtime_count"`
}
