package edge

import (
	"fmt"

	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// Config holds edge calculator configuration.
type Config struct {
	// KellyMultiplier scales the raw Kelly fraction down (quarter-Kelly by
	// default); KellyCap is an absolute ceiling on bankroll fraction.
	KellyMultiplier float64
	KellyCap        float64
	Bankroll        float64

	// EV thresholds for the recommendation tiers. Reported alongside the
	// raw numbers so the cutoffs stay inspectable.
	EVLeanThreshold   float64
	EVBetThreshold    float64
	EVStrongThreshold float64

	Logger *zap.Logger
}

// Calculator converts simulated probabilities and market prices into edge,
// expected value and a sized recommendation per side.
type Calculator struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a new edge calculator.
func New(cfg Config) *Calculator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Calculator{cfg: cfg, logger: cfg.Logger}
}

// Evaluate computes both sides of the market from the simulation result.
// For totals and props the sides are OVER/UNDER; for spreads they are
// HOME/AWAY where the simulated metric is the home margin against the
// handicap.
func (c *Calculator) Evaluate(sim *types.SimulationResult, market types.MarketSnapshot, betType types.BetType) (*types.EdgeResult, error) {
	if sim == nil {
		return nil, fmt.Errorf("simulation result is nil")
	}

	type sideInput struct {
		selection types.Selection
		price     float64
		pWin      float64
		pLose     float64
	}

	var inputs []sideInput
	switch betType {
	case types.BetTypeSpread:
		inputs = []sideInput{
			{types.SelectionHome, market.HomePrice, sim.POver, sim.PUnder},
			{types.SelectionAway, market.AwayPrice, sim.PUnder, sim.POver},
		}
	default:
		inputs = []sideInput{
			{types.SelectionOver, market.OverPrice, sim.POver, sim.PUnder},
			{types.SelectionUnder, market.UnderPrice, sim.PUnder, sim.POver},
		}
	}

	result := &types.EdgeResult{}
	for _, in := range inputs {
		if in.price <= 1.0 {
			continue
		}
		result.Sides = append(result.Sides, c.side(in.selection, in.price, in.pWin, in.pLose))
	}

	if len(result.Sides) == 0 {
		return nil, fmt.Errorf("no priced sides for %s market", betType)
	}

	best := result.Best()
	RecommendationsTotal.WithLabelValues(string(best.Tier)).Inc()
	EdgeObserved.Observe(best.Edge)

	c.logger.Debug("edge-evaluated",
		zap.String("bet-type", string(betType)),
		zap.String("best-selection", string(best.Selection)),
		zap.Float64("edge", best.Edge),
		zap.Float64("expected-value", best.ExpectedValue),
		zap.Float64("kelly-fraction", best.KellyFraction),
		zap.String("tier", string(best.Tier)))

	return result, nil
}

// side computes the full edge picture for one side of the market.
// Pushes return the stake, so they appear in neither pWin nor pLose.
func (c *Calculator) side(selection types.Selection, price, pWin, pLose float64) types.SideEdge {
	implied := types.ImpliedProbability(price)
	b := price - 1.0

	ev := pWin*b - pLose

	rawKelly := (b*pWin - (1 - pWin)) / b
	if rawKelly < 0 {
		rawKelly = 0
	}

	kelly := rawKelly * c.cfg.KellyMultiplier
	if kelly > c.cfg.KellyCap {
		kelly = c.cfg.KellyCap
	}

	return types.SideEdge{
		Selection:          selection,
		Price:              price,
		ImpliedProbability: implied,
		ModelProbability:   pWin,
		Edge:               pWin - implied,
		ExpectedValue:      ev,
		RawKelly:           rawKelly,
		KellyFraction:      kelly,
		SuggestedStake:     kelly * c.cfg.Bankroll,
		Tier:               c.tierFor(ev),
	}
}

// tierFor maps expected value per unit stake onto a recommendation tier.
func (c *Calculator) tierFor(ev float64) types.RecommendationTier {
	switch {
	case ev < c.cfg.EVLeanThreshold:
		return types.TierNoBet
	case ev < c.cfg.EVBetThreshold:
		return types.TierLean
	case ev < c.cfg.EVStrongThreshold:
		return types.TierBet
	default:
		return types.TierStrongBet
	}
}
