package projection

import (
	"testing"
	"time"

	"github.com/sharpline/sharpline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		WeightSeason:     0.20,
		WeightLast15:     0.25,
		WeightLast10:     0.30,
		WeightLast5:      0.25,
		RestPenaltyB2B:   -2.5,
		RestPenalty1Day:  -1.0,
		RestBonusLong:    1.0,
		DensityPenalty7:  -0.6,
		DensityPenalty14: -0.25,
		H2HWeight:        0.15,
		TendencyClamp:    2.0,
		BiasCorrection:   1.4,
		MinSampleGames:   10,
		Logger:           zap.NewNop(),
	}
}

func window(games int, pf, pa float64) *types.WindowAggregates {
	return &types.WindowAggregates{Games: games, PointsFor: pf, PointsAgainst: pa}
}

func testContext() *types.Context {
	return &types.Context{
		RequestID: "req-1",
		BetType:   types.BetTypeTotal,
		Home: types.SideContext{
			EntityID: "lal", Name: "Lakers", IsHome: true,
			Season: window(60, 114.0, 112.0),
			Last15: window(15, 115.0, 111.0),
			Last10: window(10, 116.0, 110.0),
			Last5:  window(5, 113.0, 112.0),
		},
		Away: types.SideContext{
			EntityID: "bos", Name: "Celtics",
			Season: window(61, 118.0, 108.0),
			Last15: window(15, 117.0, 109.0),
			Last10: window(10, 119.0, 107.0),
			Last5:  window(5, 118.0, 108.0),
		},
		HomeRest:        types.RestProfile{DaysRest: 2, GamesLast7: 3, GamesLast14: 6},
		AwayRest:        types.RestProfile{DaysRest: 2, GamesLast7: 3, GamesLast14: 6},
		LeagueAvgPoints: 113.0,
	}
}

func TestBuildAdjustmentsReconcile(t *testing.T) {
	ctx := testContext()
	ctx.HomeRest.DaysRest = 0
	ctx.HomeVenue = types.VenueSplits{VenueAvgFor: 117.0, OverallAvgFor: 114.5, VenueGames: 30}
	ctx.HeadToHead = []types.GameResult{
		{PlayedAt: time.Now(), HomeScore: 120, AwayScore: 115},
		{PlayedAt: time.Now(), HomeScore: 108, AwayScore: 111},
	}

	proj, err := New(testConfig()).Build(ctx)
	require.NoError(t, err)

	// The total must equal the baseline plus every recorded component;
	// nothing is folded in silently.
	assert.InDelta(t, proj.Baseline+proj.AdjustmentSum(), proj.Total, 1e-9)
	assert.InDelta(t, proj.HomeMean+proj.AwayMean, proj.Total, 1e-9)
}

func TestBuildWindowBlendRenormalizes(t *testing.T) {
	ctx := testContext()
	// Drop everything but two windows; remaining weights renormalize.
	ctx.Home.Season = nil
	ctx.Home.Last15 = nil
	ctx.Home.Last10 = window(10, 120.0, 110.0)
	ctx.Home.Last5 = window(5, 100.0, 110.0)
	ctx.LeagueAvgPoints = 0 // isolate the blend

	cfg := testConfig()
	cfg.BiasCorrection = 0
	proj, err := New(cfg).Build(ctx)
	require.NoError(t, err)

	// last10 weight .30, last5 weight .25 -> (120*.30 + 100*.25) / .55
	expected := (120.0*0.30 + 100.0*0.25) / 0.55
	assert.InDelta(t, expected, proj.HomeMean, 1e-9)
}

func TestBuildNoWindowsFails(t *testing.T) {
	ctx := testContext()
	ctx.Home = types.SideContext{EntityID: "lal", Name: "Lakers"}

	_, err := New(testConfig()).Build(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lakers")
}

func TestBuildOpponentStrengthDirection(t *testing.T) {
	weak := testContext()
	weak.Away.Season.PointsAgainst = 122.0 // leaky defense
	weak.Away.Last15.PointsAgainst = 122.0
	weak.Away.Last10.PointsAgainst = 122.0
	weak.Away.Last5.PointsAgainst = 122.0

	strong := testContext()
	strong.Away.Season.PointsAgainst = 104.0
	strong.Away.Last15.PointsAgainst = 104.0
	strong.Away.Last10.PointsAgainst = 104.0
	strong.Away.Last5.PointsAgainst = 104.0

	weakProj, err := New(testConfig()).Build(weak)
	require.NoError(t, err)
	strongProj, err := New(testConfig()).Build(strong)
	require.NoError(t, err)

	// Facing a leakier defense projects more points for the home side.
	assert.Greater(t, weakProj.HomeMean, strongProj.HomeMean)
}

func TestBuildRestAdjustments(t *testing.T) {
	tests := []struct {
		name     string
		daysRest int
		want     float64
	}{
		{name: "back-to-back", daysRest: 0, want: -2.5},
		{name: "one-day", daysRest: 1, want: -1.0},
		{name: "two-days-neutral", daysRest: 2, want: 0},
		{name: "long-rest-bonus", daysRest: 4, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext()
			ctx.HomeRest.DaysRest = tt.daysRest

			proj, err := New(testConfig()).Build(ctx)
			require.NoError(t, err)

			got := 0.0
			for _, a := range proj.Adjustments {
				if a.Label == "rest_home" {
					got = a.Points
				}
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestBuildScheduleDensityPenalty(t *testing.T) {
	ctx := testContext()
	ctx.AwayRest = types.RestProfile{DaysRest: 2, GamesLast7: 5, GamesLast14: 9}

	proj, err := New(testConfig()).Build(ctx)
	require.NoError(t, err)

	var density float64
	for _, a := range proj.Adjustments {
		if a.Label == "schedule_density_away" {
			density = a.Points
		}
	}
	// 2 games over the 7-day baseline, 2 over the 14-day baseline.
	assert.InDelta(t, -0.6*2+-0.25*2, density, 1e-12)
}

func TestBuildHeadToHeadPull(t *testing.T) {
	cfg := testConfig()
	cfg.BiasCorrection = 0

	without, err := New(cfg).Build(testContext())
	require.NoError(t, err)

	ctx := testContext()
	// Historical meetings ran far under the current projection.
	ctx.HeadToHead = []types.GameResult{
		{HomeScore: 98, AwayScore: 95},
		{HomeScore: 101, AwayScore: 97},
	}
	with, err := New(cfg).Build(ctx)
	require.NoError(t, err)

	assert.Less(t, with.Total, without.Total)

	var pull float64
	for _, a := range with.Adjustments {
		if a.Label == "head_to_head" {
			pull = a.Points
		}
	}
	assert.Negative(t, pull)
}

func TestBuildTendencyNudgeClamped(t *testing.T) {
	ctx := testContext()
	ctx.Home.Season.Overs = 50
	ctx.Home.Season.Unders = 10
	ctx.Away.Season.Overs = 48
	ctx.Away.Season.Unders = 13

	proj, err := New(testConfig()).Build(ctx)
	require.NoError(t, err)

	var nudge float64
	for _, a := range proj.Adjustments {
		if a.Label == "over_under_tendency" {
			nudge = a.Points
		}
	}
	// Heavy over tendency, but the nudge is bounded by the clamp.
	assert.InDelta(t, 2.0, nudge, 1e-12)
}

func TestBuildBiasCorrectionIsLast(t *testing.T) {
	proj, err := New(testConfig()).Build(testContext())
	require.NoError(t, err)
	require.NotEmpty(t, proj.Adjustments)

	last := proj.Adjustments[len(proj.Adjustments)-1]
	assert.Equal(t, "bias_correction", last.Label)
	assert.InDelta(t, 1.4, last.Points, 1e-12)
}

func TestBuildInsufficientSampleFlag(t *testing.T) {
	ctx := testContext()
	ctx.Home.Season = nil
	ctx.Home.Last15 = nil
	ctx.Home.Last10 = nil
	ctx.Home.Last5 = window(4, 110.0, 108.0)

	proj, err := New(testConfig()).Build(ctx)
	require.NoError(t, err)

	assert.True(t, proj.InsufficientSample)
	assert.Equal(t, 4, proj.SampleGames)
}

func TestBuildPlayerProp(t *testing.T) {
	ctx := &types.Context{
		BetType: types.BetTypePlayerProp,
		Prop: &types.PropContext{
			PlayerID:   "tatum",
			PlayerName: "Jayson Tatum",
			Stat:       "points",
			Season:     window(58, 27.2, 0),
			Last10:     window(10, 29.5, 0),
			Last5:      window(5, 31.0, 0),
		},
		HomeRest: types.RestProfile{DaysRest: 0, GamesLast7: 4, GamesLast14: 7},
	}

	proj, err := New(testConfig()).Build(ctx)
	require.NoError(t, err)

	// (27.2*.20 + 29.5*.30 + 31.0*.25) / .75
	baseline := (27.2*0.20 + 29.5*0.30 + 31.0*0.25) / 0.75
	assert.InDelta(t, baseline, proj.Baseline, 1e-9)

	// Back-to-back penalty applies, scaled down to the stat's level.
	assert.Less(t, proj.Total, proj.Baseline)
	assert.InDelta(t, proj.Baseline+proj.AdjustmentSum(), proj.Total, 1e-9)
	assert.Equal(t, 0.0, proj.AwayMean)
	assert.Greater(t, proj.HomeStdDev, 0.0)
}

func TestBuildPropWithoutContextFails(t *testing.T) {
	_, err := New(testConfig()).Build(&types.Context{BetType: types.BetTypePlayerProp})
	require.Error(t, err)
}
