package debate

import (
	"fmt"
	"math"

	"github.com/sharpline/sharpline/pkg/types"
)

// Input is everything a rule may inspect. Rules are pure functions over this
// snapshot; they never reach outside it.
type Input struct {
	Context    *types.Context
	Projection *types.Projection
	Simulation *types.SimulationResult
	// Selection is the candidate side being argued about.
	Selection types.Selection
	// MinSampleGames is the configured floor below which samples are thin.
	MinSampleGames int
}

// Rule is one entry in a finite argument catalog. Structural rules fire on
// every matchup; the rest fire only when their condition holds. Each rule
// emits at most one argument.
type Rule struct {
	Name       string
	Category   types.ArgumentCategory
	Structural bool
	Evaluate   func(in Input) (types.Argument, bool)
}

// selectionProb returns the simulated probability of the candidate side.
func selectionProb(in Input) float64 {
	switch in.Selection {
	case types.SelectionUnder, types.SelectionAway:
		return in.Simulation.PUnder
	default:
		return in.Simulation.POver
	}
}

// clampStrength bounds a strength score to [0, 1].
func clampStrength(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// recentVsSeason returns combined last-5 scoring minus combined season
// scoring, and whether both windows were present.
func recentVsSeason(ctx *types.Context) (float64, bool) {
	if ctx == nil {
		return 0, false
	}
	diff := 0.0
	found := false
	for _, side := range []*types.SideContext{&ctx.Home, &ctx.Away} {
		if side.Last5 == nil || side.Season == nil {
			continue
		}
		diff += side.Last5.PointsFor - side.Season.PointsFor
		found = true
	}
	return diff, found
}

// favorsOver reports whether the candidate selection profits from higher
// simulated values (over, or home covering the margin).
func favorsOver(sel types.Selection) bool {
	return sel == types.SelectionOver || sel == types.SelectionHome
}

// SupportingRules is the closed catalog of pro-selection argument rules.
func SupportingRules() []Rule {
	return []Rule{
		{
			Name:     "model_probability",
			Category: types.CategoryStatistical,
			Evaluate: func(in Input) (types.Argument, bool) {
				p := selectionProb(in)
				if p <= 0.52 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     fmt.Sprintf("model gives %s a %.1f%% win probability", in.Selection, p*100),
					Strength:  clampStrength((p - 0.5) * 4),
					Rationale: fmt.Sprintf("%d simulated outcomes against the line", in.Simulation.Draws),
					Category:  types.CategoryStatistical,
				}, true
			},
		},
		{
			Name:     "recent_form",
			Category: types.CategoryStatistical,
			Evaluate: func(in Input) (types.Argument, bool) {
				diff, ok := recentVsSeason(in.Context)
				if !ok {
					return types.Argument{}, false
				}
				if favorsOver(in.Selection) != (diff > 0) || math.Abs(diff) < 2.0 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     fmt.Sprintf("recent form runs %.1f points from season baseline toward %s", diff, in.Selection),
					Strength:  clampStrength(math.Abs(diff) / 10.0),
					Rationale: "combined last-5 scoring versus season average",
					Category:  types.CategoryStatistical,
				}, true
			},
		},
		{
			Name:     "percentile_cushion",
			Category: types.CategoryStatistical,
			Evaluate: func(in Input) (types.Argument, bool) {
				sim := in.Simulation
				spread := sim.Percentiles.P75 - sim.Percentiles.P25
				if spread <= 0 {
					return types.Argument{}, false
				}
				var cushion float64
				if favorsOver(in.Selection) {
					cushion = sim.Percentiles.P25 - sim.Line
				} else {
					cushion = sim.Line - sim.Percentiles.P75
				}
				if cushion <= 0 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     fmt.Sprintf("the line sits outside the middle half of simulated outcomes for %s", in.Selection),
					Strength:  clampStrength(cushion / spread),
					Rationale: fmt.Sprintf("25th-75th percentile band is %.1f-%.1f against line %.1f", sim.Percentiles.P25, sim.Percentiles.P75, sim.Line),
					Category:  types.CategoryStatistical,
				}, true
			},
		},
		{
			Name:     "rest_edge",
			Category: types.CategorySituational,
			Evaluate: func(in Input) (types.Argument, bool) {
				if in.Context == nil {
					return types.Argument{}, false
				}
				home, away := in.Context.HomeRest.DaysRest, in.Context.AwayRest.DaysRest
				diff := home - away
				switch in.Selection {
				case types.SelectionHome:
					if diff < 2 {
						return types.Argument{}, false
					}
				case types.SelectionAway:
					if -diff < 2 {
						return types.Argument{}, false
					}
					diff = -diff
				default:
					// totals: both sides rested favors the over, both tired the under
					minRest := home
					if away < minRest {
						minRest = away
					}
					if favorsOver(in.Selection) && minRest >= 2 {
						diff = minRest
					} else if !favorsOver(in.Selection) && home <= 1 && away <= 1 {
						diff = 2
					} else {
						return types.Argument{}, false
					}
				}
				return types.Argument{
					Claim:     fmt.Sprintf("rest profile favors %s", in.Selection),
					Strength:  clampStrength(float64(diff) * 0.2),
					Rationale: fmt.Sprintf("home rest %dd, away rest %dd", home, away),
					Category:  types.CategorySituational,
				}, true
			},
		},
		{
			Name:     "head_to_head_trend",
			Category: types.CategorySituational,
			Evaluate: func(in Input) (types.Argument, bool) {
				ctx := in.Context
				if ctx == nil || len(ctx.HeadToHead) < 2 {
					return types.Argument{}, false
				}
				avg := 0.0
				for _, g := range ctx.HeadToHead {
					avg += g.HomeScore + g.AwayScore
				}
				avg /= float64(len(ctx.HeadToHead))
				gap := avg - in.Simulation.Line
				if favorsOver(in.Selection) != (gap > 0) || math.Abs(gap) < 3.0 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     fmt.Sprintf("head-to-head meetings average %.1f against a line of %.1f", avg, in.Simulation.Line),
					Strength:  clampStrength(math.Abs(gap) / 15.0),
					Rationale: fmt.Sprintf("%d prior meetings", len(ctx.HeadToHead)),
					Category:  types.CategorySituational,
				}, true
			},
		},
	}
}

// OpposingRules is the closed catalog of counter-argument rules. The
// structural entries fire on every matchup, so the opposing side is never
// empty by construction.
func OpposingRules() []Rule {
	return []Rule{
		{
			Name:       "sample_size_caution",
			Category:   types.CategoryStructural,
			Structural: true,
			Evaluate: func(in Input) (types.Argument, bool) {
				sample := 0
				if in.Projection != nil {
					sample = in.Projection.SampleGames
				}
				minGames := in.MinSampleGames
				if minGames <= 0 {
					minGames = 10
				}
				shortfall := 0.0
				if sample < minGames {
					shortfall = float64(minGames-sample) / float64(minGames)
				}
				return types.Argument{
					Claim:     fmt.Sprintf("projection rests on %d games of signal", sample),
					Strength:  clampStrength(0.3 + 0.7*shortfall),
					Rationale: "small samples overstate recent signal",
					Category:  types.CategoryStructural,
				}, true
			},
		},
		{
			Name:       "market_efficiency",
			Category:   types.CategoryStructural,
			Structural: true,
			Evaluate: func(in Input) (types.Argument, bool) {
				p := selectionProb(in)
				claimed := math.Abs(p - 0.5)
				return types.Argument{
					Claim:     "the posted line already aggregates sharp information",
					Strength:  clampStrength(0.25 + claimed*1.2),
					Rationale: fmt.Sprintf("model deviates %.1f points of probability from the market's coin flip", claimed*100),
					Category:  types.CategoryMarket,
				}, true
			},
		},
		{
			Name:       "regression_to_mean",
			Category:   types.CategoryStructural,
			Structural: true,
			Evaluate: func(in Input) (types.Argument, bool) {
				diff, ok := recentVsSeason(in.Context)
				strength := 0.2
				rationale := "hot and cold streaks revert"
				if ok && math.Abs(diff) >= 2.0 {
					strength = 0.2 + math.Abs(diff)/15.0
					rationale = fmt.Sprintf("recent scoring sits %.1f points off the season baseline", diff)
				}
				return types.Argument{
					Claim:     "recent deviations tend to regress toward season form",
					Strength:  clampStrength(strength),
					Rationale: rationale,
					Category:  types.CategoryStructural,
				}, true
			},
		},
		{
			Name:     "outcome_volatility",
			Category: types.CategoryStatistical,
			Evaluate: func(in Input) (types.Argument, bool) {
				sim := in.Simulation
				if sim.Mean == 0 {
					return types.Argument{}, false
				}
				cv := sim.StdDev / math.Abs(sim.Mean)
				if cv < 0.08 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     "simulated outcomes are widely dispersed around the line",
					Strength:  clampStrength(cv * 5),
					Rationale: fmt.Sprintf("std dev %.1f on a mean of %.1f", sim.StdDev, sim.Mean),
					Category:  types.CategoryStatistical,
				}, true
			},
		},
		{
			Name:     "fatigue_risk",
			Category: types.CategorySituational,
			Evaluate: func(in Input) (types.Argument, bool) {
				if in.Context == nil || !favorsOver(in.Selection) {
					return types.Argument{}, false
				}
				dense := 0
				for _, rest := range []types.RestProfile{in.Context.HomeRest, in.Context.AwayRest} {
					if rest.GamesLast7 >= 4 || rest.DaysRest == 0 {
						dense++
					}
				}
				if dense == 0 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     "schedule congestion depresses scoring",
					Strength:  clampStrength(0.25 * float64(dense) * 1.5),
					Rationale: fmt.Sprintf("%d side(s) on a compressed schedule", dense),
					Category:  types.CategorySituational,
				}, true
			},
		},
		{
			Name:     "push_exposure",
			Category: types.CategoryMarket,
			Evaluate: func(in Input) (types.Argument, bool) {
				if in.Simulation.PPush < 0.01 {
					return types.Argument{}, false
				}
				return types.Argument{
					Claim:     "a whole-number line leaves meaningful push exposure",
					Strength:  clampStrength(in.Simulation.PPush * 10),
					Rationale: fmt.Sprintf("%.1f%% of simulations land exactly on the line", in.Simulation.PPush*100),
					Category:  types.CategoryMarket,
				}, true
			},
		},
	}
}
