package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/internal/ledger"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/sharpline/sharpline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAccess is a canned warehouse. Fields toggle failure modes per call.
type fakeAccess struct {
	entities    map[string]dataaccess.Entity
	aggregates  map[string]*types.WindowAggregates
	market      *types.MarketSnapshot
	failWindows map[dataaccess.Window]bool
	failAll     bool
	resolves    int
}

func (f *fakeAccess) ResolveEntity(_ context.Context, name string) (*dataaccess.Entity, error) {
	f.resolves++
	if f.failAll {
		return nil, errors.New("warehouse down")
	}
	e, ok := f.entities[name]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	return &e, nil
}

func (f *fakeAccess) FetchAggregates(_ context.Context, entityID string, window dataaccess.Window) (*types.WindowAggregates, error) {
	if f.failAll || f.failWindows[window] {
		return nil, dataaccess.ErrNotFound
	}
	agg, ok := f.aggregates[entityID]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	cp := *agg
	return &cp, nil
}

func (f *fakeAccess) FetchHeadToHead(_ context.Context, _, _ string, _ int) ([]types.GameResult, error) {
	if f.failAll {
		return nil, dataaccess.ErrNotFound
	}
	return []types.GameResult{
		{PlayedAt: time.Now().AddDate(0, -1, 0), HomeScore: 112, AwayScore: 108},
		{PlayedAt: time.Now().AddDate(0, -3, 0), HomeScore: 119, AwayScore: 115},
	}, nil
}

func (f *fakeAccess) FetchRestAndDensity(_ context.Context, _ string, _ time.Time) (*types.RestProfile, error) {
	return &types.RestProfile{DaysRest: 2, GamesLast7: 3, GamesLast14: 6}, nil
}

func (f *fakeAccess) FetchVenueSplits(_ context.Context, _ string, _ bool) (*types.VenueSplits, error) {
	if f.failAll {
		return nil, dataaccess.ErrNotFound
	}
	return &types.VenueSplits{VenueAvgFor: 113.0, OverallAvgFor: 112.5, VenueGames: 10}, nil
}

func (f *fakeAccess) FetchMarketOdds(_ context.Context, _ string, _ types.BetType) (*types.MarketSnapshot, error) {
	if f.failAll || f.market == nil {
		return nil, dataaccess.ErrNotFound
	}
	cp := *f.market
	return &cp, nil
}

func (f *fakeAccess) FetchRealizedResult(_ context.Context, _ string, _ types.BetType, _ string) (float64, error) {
	return 0, dataaccess.ErrNotFound
}

func (f *fakeAccess) LeagueAveragePoints(_ context.Context) (float64, error) {
	if f.failAll {
		return 0, errors.New("warehouse down")
	}
	return 112.0, nil
}

func (f *fakeAccess) Close() error { return nil }

// captureStore records inserted wagers and stubs out the rest of the ledger.
type captureStore struct {
	ledger.Store
	inserted []*types.Wager
}

func (c *captureStore) InsertWager(_ context.Context, w *types.Wager) error {
	c.inserted = append(c.inserted, w)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	cfg.SimSeed = 42
	cfg.SimDraws = 4000
	return cfg
}

func healthyAccess() *fakeAccess {
	return &fakeAccess{
		entities: map[string]dataaccess.Entity{
			"lakers":  {ID: "lal", Name: "Los Angeles Lakers", Kind: "team"},
			"celtics": {ID: "bos", Name: "Boston Celtics", Kind: "team"},
		},
		aggregates: map[string]*types.WindowAggregates{
			"lal": {Games: 20, PointsFor: 114.0, PointsAgainst: 110.0, Wins: 12, Losses: 8, Overs: 11, Unders: 9},
			"bos": {Games: 20, PointsFor: 112.0, PointsAgainst: 109.0, Wins: 13, Losses: 7, Overs: 10, Unders: 10},
		},
		market: &types.MarketSnapshot{
			Line: 220.5, HasLine: true,
			OverPrice: 1.91, UnderPrice: 1.91,
			FetchedAt: time.Now().UTC(),
		},
		failWindows: map[dataaccess.Window]bool{},
	}
}

func totalRequest() types.EvaluationRequest {
	return types.EvaluationRequest{
		BetType:  types.BetTypeTotal,
		HomeTeam: "celtics",
		AwayTeam: "lakers",
	}
}

func TestNextRoutesToEarliestMissingArtifact(t *testing.T) {
	ctx := &types.Context{}
	proj := &types.Projection{}
	sim := &types.SimulationResult{}
	deb := &types.DebateResult{}

	tests := []struct {
		name string
		arts Artifacts
		want State
	}{
		{name: "empty", arts: Artifacts{}, want: StateAwaitingContext},
		{name: "context-only", arts: Artifacts{Context: ctx}, want: StateContextFetched},
		{name: "projected", arts: Artifacts{Context: ctx, Projection: proj}, want: StateProjected},
		{name: "simulated", arts: Artifacts{Context: ctx, Projection: proj, Simulation: sim}, want: StateSimulated},
		{name: "edge-optional", arts: Artifacts{Context: ctx, Projection: proj, Simulation: sim, Debate: deb}, want: StateDebated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.arts))
		})
	}
}

func TestRetryKeepsFetchedContext(t *testing.T) {
	ctx := &types.Context{}
	proj := &types.Projection{}

	arts, state := Retry(Artifacts{Context: ctx, Projection: proj})
	assert.Equal(t, StateContextFetched, state)
	assert.Same(t, ctx, arts.Context)
	assert.Nil(t, arts.Projection)
	assert.Nil(t, arts.Simulation)
	assert.Nil(t, arts.Edge)
	assert.Nil(t, arts.Debate)

	// A failed fetch retries from the top.
	arts, state = Retry(Artifacts{})
	assert.Equal(t, StateAwaitingContext, state)
	assert.Nil(t, arts.Context)
}

func TestEvaluateProducesFullResult(t *testing.T) {
	orch := New(&Config{
		Access: healthyAccess(),
		Cfg:    testConfig(t),
		Logger: zap.NewNop(),
	})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, types.QualityFresh, ev.Quality)
	assert.Zero(t, ev.Retries)
	require.NotNil(t, ev.Context)
	require.NotNil(t, ev.Projection)
	require.NotNil(t, ev.Simulation)
	require.NotNil(t, ev.Edge)
	require.NotNil(t, ev.Debate)

	sum := ev.Simulation.POver + ev.Simulation.PUnder + ev.Simulation.PPush
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.NotEmpty(t, ev.Selection)
	assert.NotEmpty(t, ev.Recommendation)
	assert.NotEmpty(t, ev.Debate.Opposing)
}

func TestEvaluateRetryBoundWhenWarehouseDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 2

	access := &fakeAccess{failAll: true}
	orch := New(&Config{Access: access, Cfg: cfg, Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, 2, ev.Retries)
	assert.Equal(t, types.QualityUnavailable, ev.Quality)
	assert.Equal(t, types.TierNoBet, ev.Recommendation)
	assert.Contains(t, ev.Errors, types.ErrCodeDataUnavailable)
	// One resolve per attempt: the initial try plus two retries.
	assert.Equal(t, 3, access.resolves)
}

func TestEvaluateDegradesToPartialQuality(t *testing.T) {
	access := healthyAccess()
	access.failWindows[dataaccess.WindowLast5] = true

	orch := New(&Config{Access: access, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)

	assert.Equal(t, types.QualityPartial, ev.Quality)
	require.NotNil(t, ev.Context)
	assert.Contains(t, ev.Context.Missing, "home.last_5")
	require.NotNil(t, ev.Projection)
	require.NotNil(t, ev.Simulation)
}

func TestEvaluateNeedsLine(t *testing.T) {
	access := healthyAccess()
	access.market = &types.MarketSnapshot{FetchedAt: time.Now().UTC()}

	orch := New(&Config{Access: access, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)

	assert.Equal(t, types.TierNeedLine, ev.Recommendation)
	require.NotNil(t, ev.Projection)
	assert.Nil(t, ev.Simulation)
}

func TestEvaluateExplicitLineOverridesMarket(t *testing.T) {
	access := healthyAccess()
	line := 215.5
	req := totalRequest()
	req.Line = &line

	orch := New(&Config{Access: access, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, ev.Simulation)
	assert.InDelta(t, 215.5, ev.Simulation.Line, 1e-9)
}

func TestEvaluatePersistsWagerOnBetTier(t *testing.T) {
	access := healthyAccess()
	// A line far below the projected total makes the over a near-lock, so
	// the tier clears the persistence threshold even after a lost debate.
	access.market.Line = 195.5

	store := &captureStore{}
	orch := New(&Config{Access: access, Store: store, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	w := store.inserted[0]
	assert.Equal(t, ev.ID, w.ID)
	assert.Equal(t, types.SelectionOver, w.Selection)
	assert.InDelta(t, 195.5, w.Line, 1e-9)
	assert.InDelta(t, 1.91, w.Price, 1e-9)
	assert.Equal(t, types.OutcomePending, w.Outcome)
	assert.NotNil(t, w.Trace.Projection)
	assert.NotNil(t, w.Trace.Simulation)
	assert.Positive(t, w.Stake)
}

type stubGuard struct {
	enabled bool
	stakes  []float64
}

func (g *stubGuard) IsEnabled() bool       { return g.enabled }
func (g *stubGuard) RecordStake(s float64) { g.stakes = append(g.stakes, s) }

func TestEvaluateGuardSuspendsPersistence(t *testing.T) {
	access := healthyAccess()
	access.market.Line = 195.5

	store := &captureStore{}
	guard := &stubGuard{enabled: false}
	orch := New(&Config{Access: access, Store: store, Guard: guard, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)

	// The recommendation stands; only the ledger write is vetoed.
	assert.NotEqual(t, types.TierNoBet, ev.Recommendation)
	assert.Empty(t, store.inserted)
	assert.Empty(t, guard.stakes)
}

func TestEvaluateGuardRecordsStake(t *testing.T) {
	access := healthyAccess()
	access.market.Line = 195.5

	store := &captureStore{}
	guard := &stubGuard{enabled: true}
	orch := New(&Config{Access: access, Store: store, Guard: guard, Cfg: testConfig(t), Logger: zap.NewNop()})

	_, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	require.Len(t, guard.stakes, 1)
	assert.InDelta(t, store.inserted[0].Stake, guard.stakes[0], 1e-9)
}

func TestEvaluateDryRunSkipsPersistence(t *testing.T) {
	access := healthyAccess()
	access.market.Line = 195.5

	orch := New(&Config{Access: access, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), totalRequest())
	require.NoError(t, err)
	assert.NotEqual(t, types.TierNoBet, ev.Recommendation)
}

func TestEvaluatePlayerProp(t *testing.T) {
	access := healthyAccess()
	access.entities["tatum"] = dataaccess.Entity{ID: "p-tatum", Name: "Jayson Tatum", Kind: "player"}
	access.aggregates["p-tatum"] = &types.WindowAggregates{Games: 20, PointsFor: 27.5}
	access.market = &types.MarketSnapshot{
		Line: 26.5, HasLine: true,
		OverPrice: 1.87, UnderPrice: 1.95,
		FetchedAt: time.Now().UTC(),
	}

	orch := New(&Config{Access: access, Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(context.Background(), types.EvaluationRequest{
		BetType: types.BetTypePlayerProp,
		Player:  "tatum",
		Stat:    "points",
	})
	require.NoError(t, err)

	require.NotNil(t, ev.Projection)
	require.NotNil(t, ev.Simulation)
	assert.InDelta(t, 26.5, ev.Simulation.Line, 1e-9)
	sum := ev.Simulation.POver + ev.Simulation.PUnder + ev.Simulation.PPush
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestEvaluateHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(&Config{Access: healthyAccess(), Cfg: testConfig(t), Logger: zap.NewNop()})

	ev, err := orch.Evaluate(ctx, totalRequest())
	require.Error(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, types.QualityUnavailable, ev.Quality)
}
