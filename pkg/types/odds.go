package types

import "fmt"

// DecimalFromAmerican converts American odds to decimal odds.
// A negative favorite pays 100/|odds| per unit; a positive underdog pays
// odds/100 per unit.
func DecimalFromAmerican(american float64) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("american odds cannot be zero")
	}
	if american > -100 && american < 100 {
		return 0, fmt.Errorf("american odds must be <= -100 or >= 100, got %v", american)
	}

	if american < 0 {
		return 100.0/(-american) + 1.0, nil
	}
	return american/100.0 + 1.0, nil
}

// AmericanFromDecimal converts decimal odds to American odds.
func AmericanFromDecimal(decimal float64) (float64, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("decimal odds must be > 1.0, got %v", decimal)
	}

	if decimal >= 2.0 {
		return (decimal - 1.0) * 100.0, nil
	}
	return -100.0 / (decimal - 1.0), nil
}

// ImpliedProbability returns the win probability implied by decimal odds.
func ImpliedProbability(decimal float64) float64 {
	if decimal <= 0 {
		return 0
	}
	return 1.0 / decimal
}
