package projection

import (
	"fmt"

	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// Per-side score spread estimated as a fraction of the projected mean.
// Aggregates carry no variance, so the spread is reconstructed from the
// level; the floors keep thin slates from collapsing the distribution.
const (
	teamStdDevRatio = 0.10
	teamStdDevFloor = 8.0
	propStdDevRatio = 0.25
	propStdDevFloor = 3.0
)

// Config holds projection builder configuration.
type Config struct {
	// Window weights; missing windows drop out and the rest renormalize.
	WeightSeason float64
	WeightLast15 float64
	WeightLast10 float64
	WeightLast5  float64

	RestPenaltyB2B  float64
	RestPenalty1Day float64
	RestBonusLong   float64

	DensityPenalty7  float64
	DensityPenalty14 float64

	H2HWeight      float64
	TendencyClamp  float64
	BiasCorrection float64

	MinSampleGames int
	Logger         *zap.Logger
}

// Builder combines multi-window aggregates and situational signals into a
// point projection. Every correction is recorded as a named component so the
// final number can be audited term by term.
type Builder struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a new projection builder.
func New(cfg Config) *Builder {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Builder{cfg: cfg, logger: cfg.Logger}
}

// Build derives a projection from the context. Player props project a single
// stat value; team markets project both sides and their combined total.
func (b *Builder) Build(ctx *types.Context) (*types.Projection, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}

	if ctx.BetType == types.BetTypePlayerProp {
		return b.buildProp(ctx)
	}
	return b.buildTeams(ctx)
}

func (b *Builder) buildTeams(ctx *types.Context) (*types.Projection, error) {
	homeFor, ok := b.blend(&ctx.Home, pointsFor)
	if !ok {
		return nil, fmt.Errorf("no aggregate windows for %s", ctx.Home.Name)
	}
	awayFor, ok := b.blend(&ctx.Away, pointsFor)
	if !ok {
		return nil, fmt.Errorf("no aggregate windows for %s", ctx.Away.Name)
	}

	homeAgainst, _ := b.blend(&ctx.Home, pointsAgainst)
	awayAgainst, _ := b.blend(&ctx.Away, pointsAgainst)

	proj := &types.Projection{Baseline: homeFor + awayFor}

	homeMean := homeFor
	awayMean := awayFor

	// Opponent-strength normalization: scale each side's scoring by how the
	// opponent's points allowed compare to the league average.
	if ctx.LeagueAvgPoints > 0 {
		if awayAgainst > 0 {
			adj := homeFor*(awayAgainst/ctx.LeagueAvgPoints) - homeFor
			homeMean += adj
			proj.Adjustments = append(proj.Adjustments, types.Adjustment{
				Label:  "opponent_defense_home",
				Points: adj,
				Rationale: fmt.Sprintf("%s allows %.1f vs league avg %.1f",
					ctx.Away.Name, awayAgainst, ctx.LeagueAvgPoints),
			})
		}
		if homeAgainst > 0 {
			adj := awayFor*(homeAgainst/ctx.LeagueAvgPoints) - awayFor
			awayMean += adj
			proj.Adjustments = append(proj.Adjustments, types.Adjustment{
				Label:  "opponent_defense_away",
				Points: adj,
				Rationale: fmt.Sprintf("%s allows %.1f vs league avg %.1f",
					ctx.Home.Name, homeAgainst, ctx.LeagueAvgPoints),
			})
		}
	}

	// Rest and schedule-density effects, per side.
	homeMean += b.applyRest(proj, "home", ctx.Home.Name, ctx.HomeRest)
	awayMean += b.applyRest(proj, "away", ctx.Away.Name, ctx.AwayRest)
	homeMean += b.applyDensity(proj, "home", ctx.Home.Name, ctx.HomeRest)
	awayMean += b.applyDensity(proj, "away", ctx.Away.Name, ctx.AwayRest)

	// Venue splits: how each side scores at this venue type vs overall.
	homeMean += b.applyVenue(proj, "home", ctx.Home.Name, ctx.HomeVenue)
	awayMean += b.applyVenue(proj, "away", ctx.Away.Name, ctx.AwayVenue)

	// Head-to-head pull: nudge the combined total toward the historical
	// meeting average, split evenly across the sides.
	if len(ctx.HeadToHead) > 0 && b.cfg.H2HWeight > 0 {
		h2hAvg := 0.0
		for _, g := range ctx.HeadToHead {
			h2hAvg += g.HomeScore + g.AwayScore
		}
		h2hAvg /= float64(len(ctx.HeadToHead))

		pull := b.cfg.H2HWeight * (h2hAvg - (homeMean + awayMean))
		homeMean += pull / 2
		awayMean += pull / 2
		proj.Adjustments = append(proj.Adjustments, types.Adjustment{
			Label:  "head_to_head",
			Points: pull,
			Rationale: fmt.Sprintf("last %d meetings averaged %.1f combined",
				len(ctx.HeadToHead), h2hAvg),
		})
	}

	// Historical over/under tendency, bounded to a few points.
	if nudge, overRate, games := b.tendencyNudge(ctx); games > 0 && nudge != 0 {
		homeMean += nudge / 2
		awayMean += nudge / 2
		proj.Adjustments = append(proj.Adjustments, types.Adjustment{
			Label:  "over_under_tendency",
			Points: nudge,
			Rationale: fmt.Sprintf("both sides hit the over %.0f%% across %d games",
				overRate*100, games),
		})
	}

	// Empirical bias correction is always the last term.
	if b.cfg.BiasCorrection != 0 {
		homeMean += b.cfg.BiasCorrection / 2
		awayMean += b.cfg.BiasCorrection / 2
		proj.Adjustments = append(proj.Adjustments, types.Adjustment{
			Label:     "bias_correction",
			Points:    b.cfg.BiasCorrection,
			Rationale: "backtested model-vs-realized total bias",
		})
	}

	proj.HomeMean = homeMean
	proj.AwayMean = awayMean
	proj.HomeStdDev = sideStdDev(homeMean, teamStdDevRatio, teamStdDevFloor)
	proj.AwayStdDev = sideStdDev(awayMean, teamStdDevRatio, teamStdDevFloor)
	proj.Total = homeMean + awayMean

	home := ctx.Home.SampleGames()
	away := ctx.Away.SampleGames()
	proj.SampleGames = home
	if away < home {
		proj.SampleGames = away
	}
	proj.InsufficientSample = proj.SampleGames < b.cfg.MinSampleGames

	b.logger.Debug("projection-built",
		zap.Float64("baseline", proj.Baseline),
		zap.Float64("total", proj.Total),
		zap.Int("adjustments", len(proj.Adjustments)),
		zap.Int("sample-games", proj.SampleGames),
		zap.Bool("insufficient-sample", proj.InsufficientSample))

	return proj, nil
}

func (b *Builder) buildProp(ctx *types.Context) (*types.Projection, error) {
	if ctx.Prop == nil {
		return nil, fmt.Errorf("player prop context missing")
	}

	side := types.SideContext{
		Season: ctx.Prop.Season,
		Last15: ctx.Prop.Last15,
		Last10: ctx.Prop.Last10,
		Last5:  ctx.Prop.Last5,
	}
	baseline, ok := b.blend(&side, pointsFor)
	if !ok {
		return nil, fmt.Errorf("no aggregate windows for player %s", ctx.Prop.PlayerName)
	}

	proj := &types.Projection{Baseline: baseline}
	mean := baseline

	// Rest and density affect an individual stat line proportionally to its
	// level, not by the fixed team-points magnitudes.
	scale := baseline / 110.0
	before := len(proj.Adjustments)
	restAdj := b.applyRest(proj, "player", ctx.Prop.PlayerName, ctx.HomeRest)
	densityAdj := b.applyDensity(proj, "player", ctx.Prop.PlayerName, ctx.HomeRest)
	for i := before; i < len(proj.Adjustments); i++ {
		proj.Adjustments[i].Points *= scale
	}
	mean += (restAdj + densityAdj) * scale

	proj.HomeMean = mean
	proj.HomeStdDev = sideStdDev(mean, propStdDevRatio, propStdDevFloor)
	proj.Total = mean
	proj.SampleGames = side.SampleGames()
	proj.InsufficientSample = proj.SampleGames < b.cfg.MinSampleGames

	b.logger.Debug("prop-projection-built",
		zap.String("player", ctx.Prop.PlayerName),
		zap.String("stat", ctx.Prop.Stat),
		zap.Float64("value", proj.Total),
		zap.Int("sample-games", proj.SampleGames))

	return proj, nil
}

// applyRest records the day-count rest adjustment and returns its points.
func (b *Builder) applyRest(proj *types.Projection, slot, name string, rest types.RestProfile) float64 {
	var points float64
	var why string

	switch {
	case rest.DaysRest <= 0:
		points = b.cfg.RestPenaltyB2B
		why = "back-to-back"
	case rest.DaysRest == 1:
		points = b.cfg.RestPenalty1Day
		why = "one day of rest"
	case rest.DaysRest >= 3:
		points = b.cfg.RestBonusLong
		why = fmt.Sprintf("%d days of rest", rest.DaysRest)
	default:
		return 0
	}

	proj.Adjustments = append(proj.Adjustments, types.Adjustment{
		Label:     "rest_" + slot,
		Points:    points,
		Rationale: fmt.Sprintf("%s on %s", name, why),
	})
	return points
}

// applyDensity records the schedule-density fatigue adjustment.
func (b *Builder) applyDensity(proj *types.Projection, slot, name string, rest types.RestProfile) float64 {
	over7 := rest.GamesLast7 - 3
	over14 := rest.GamesLast14 - 7
	if over7 < 0 {
		over7 = 0
	}
	if over14 < 0 {
		over14 = 0
	}

	points := b.cfg.DensityPenalty7*float64(over7) + b.cfg.DensityPenalty14*float64(over14)
	if points == 0 {
		return 0
	}

	proj.Adjustments = append(proj.Adjustments, types.Adjustment{
		Label:  "schedule_density_" + slot,
		Points: points,
		Rationale: fmt.Sprintf("%s played %d in last 7 days, %d in last 14",
			name, rest.GamesLast7, rest.GamesLast14),
	})
	return points
}

// applyVenue records the venue-split adjustment.
func (b *Builder) applyVenue(proj *types.Projection, slot, name string, venue types.VenueSplits) float64 {
	if venue.VenueGames == 0 || venue.OverallAvgFor == 0 {
		return 0
	}

	points := venue.VenueAvgFor - venue.OverallAvgFor
	if points == 0 {
		return 0
	}

	proj.Adjustments = append(proj.Adjustments, types.Adjustment{
		Label:  "venue_split_" + slot,
		Points: points,
		Rationale: fmt.Sprintf("%s averages %.1f at this venue type vs %.1f overall",
			name, venue.VenueAvgFor, venue.OverallAvgFor),
	})
	return points
}

// tendencyNudge derives a bounded total nudge from both sides' over/under
// history in their season windows.
func (b *Builder) tendencyNudge(ctx *types.Context) (nudge, overRate float64, games int) {
	overs, total := 0, 0
	for _, w := range []*types.WindowAggregates{ctx.Home.Season, ctx.Away.Season} {
		if w == nil {
			continue
		}
		overs += w.Overs
		total += w.Overs + w.Unders
	}
	if total == 0 {
		return 0, 0, 0
	}

	overRate = float64(overs) / float64(total)
	nudge = (overRate - 0.5) * 10.0
	if nudge > b.cfg.TendencyClamp {
		nudge = b.cfg.TendencyClamp
	}
	if nudge < -b.cfg.TendencyClamp {
		nudge = -b.cfg.TendencyClamp
	}
	return nudge, overRate, total
}

// blend computes the weighted combination of one field across present
// windows, renormalizing the weights over whatever is available.
func (b *Builder) blend(side *types.SideContext, field func(*types.WindowAggregates) float64) (float64, bool) {
	windows := []struct {
		agg    *types.WindowAggregates
		weight float64
	}{
		{side.Season, b.cfg.WeightSeason},
		{side.Last15, b.cfg.WeightLast15},
		{side.Last10, b.cfg.WeightLast10},
		{side.Last5, b.cfg.WeightLast5},
	}

	sum, weightSum := 0.0, 0.0
	for _, w := range windows {
		if w.agg == nil || w.agg.Games == 0 {
			continue
		}
		sum += field(w.agg) * w.weight
		weightSum += w.weight
	}
	if weightSum == 0 {
		return 0, false
	}
	return sum / weightSum, true
}

func pointsFor(w *types.WindowAggregates) float64     { return w.PointsFor }
func pointsAgainst(w *types.WindowAggregates) float64 { return w.PointsAgainst }

func sideStdDev(mean, ratio, floor float64) float64 {
	sd := mean * ratio
	if sd < floor {
		return floor
	}
	return sd
}
