package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/internal/debate"
	"github.com/sharpline/sharpline/internal/edge"
	"github.com/sharpline/sharpline/internal/ledger"
	"github.com/sharpline/sharpline/internal/projection"
	"github.com/sharpline/sharpline/internal/simulation"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Depth hints map to draw counts; "standard" uses the configured default.
const (
	quickDraws = 2500
	deepDraws  = 50000
)

// Config holds orchestrator configuration.
type Config struct {
	Access dataaccess.Access
	// Store receives wagers for recommendations at bet tier or above.
	// A nil store disables persistence (dry evaluation).
	Store ledger.Store
	// Guard can veto persistence while the bankroll is in drawdown.
	// A nil guard never vetoes.
	Guard  Guard
	Cfg    *config.Config
	Logger *zap.Logger
}

// Guard decides whether new wagers may be persisted right now.
type Guard interface {
	IsEnabled() bool
	RecordStake(stake float64)
}

// Orchestrator drives one request through the pipeline: fetch context,
// project, simulate, run the edge math and the debate, then decide and
// persist. Stage failures become missing-artifact markers; the only loop is
// the bounded retry back to the fetch stage, so every request terminates
// with a structured evaluation.
type Orchestrator struct {
	access     dataaccess.Access
	store      ledger.Store
	guard      Guard
	cfg        *config.Config
	builder    *projection.Builder
	calculator *edge.Calculator
	engine     *debate.Engine
	logger     *zap.Logger
}

// New wires the pipeline stages from application configuration.
func New(cfg *Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cfg.Cfg

	builder := projection.New(projection.Config{
		WeightSeason:     c.WeightSeason,
		WeightLast15:     c.WeightLast15,
		WeightLast10:     c.WeightLast10,
		WeightLast5:      c.WeightLast5,
		RestPenaltyB2B:   c.RestPenaltyB2B,
		RestPenalty1Day:  c.RestPenalty1Day,
		RestBonusLong:    c.RestBonusLong,
		DensityPenalty7:  c.DensityPenalty7,
		DensityPenalty14: c.DensityPenalty14,
		H2HWeight:        c.H2HWeight,
		TendencyClamp:    c.TendencyClamp,
		BiasCorrection:   c.BiasCorrection,
		MinSampleGames:   c.MinSampleGames,
		Logger:           logger,
	})

	calculator := edge.New(edge.Config{
		KellyMultiplier:   c.KellyMultiplier,
		KellyCap:          c.KellyCap,
		Bankroll:          c.Bankroll,
		EVLeanThreshold:   c.EVLeanThreshold,
		EVBetThreshold:    c.EVBetThreshold,
		EVStrongThreshold: c.EVStrongThreshold,
		Logger:            logger,
	})

	engine := debate.New(debate.Config{
		TopK:            c.DebateTopK,
		WinnerThreshold: c.DebateWinnerThreshold,
		MinSampleGames:  c.MinSampleGames,
		Logger:          logger,
	})

	return &Orchestrator{
		access:     cfg.Access,
		store:      cfg.Store,
		guard:      cfg.Guard,
		cfg:        c,
		builder:    builder,
		calculator: calculator,
		engine:     engine,
		logger:     logger,
	}
}

// Evaluate runs one request to a terminal state. The returned evaluation is
// never nil; the error is non-nil only when the caller's context ends the
// run early.
func (o *Orchestrator) Evaluate(ctx context.Context, req types.EvaluationRequest) (*types.Evaluation, error) {
	start := time.Now()
	ev := &types.Evaluation{
		ID:             uuid.NewString(),
		Request:        req,
		CreatedAt:      start.UTC(),
		Recommendation: types.TierNoBet,
		Quality:        types.QualityUnavailable,
	}

	var arts Artifacts
	var stageErrs []*types.StageError
	retries := 0
	state := StateAwaitingContext

	for {
		err := ctx.Err()
		if err != nil {
			o.finish(ev, arts, stageErrs, retries)
			return ev, err
		}

		switch state {
		case StateAwaitingContext:
			arts.Context, stageErrs = o.fetchContext(ctx, req, stageErrs)

		case StateContextFetched:
			proj, err := o.builder.Build(arts.Context)
			if err != nil {
				stageErrs = append(stageErrs, types.NewStageError(
					"projection", types.ErrCodeDataUnavailable, "%v", err))
			} else {
				arts.Projection = proj
			}

		case StateProjected:
			line, ok := resolveLine(req, arts.Context)
			if !ok {
				ev.Recommendation = types.TierNeedLine
				o.finish(ev, arts, stageErrs, retries)
				o.observe(ev, start)
				return ev, nil
			}
			sim, err := o.kernelFor(req.Depth).Run(arts.Projection, line, metricFor(req.BetType))
			if err != nil {
				stageErrs = append(stageErrs, types.NewStageError(
					"simulation", types.ErrCodeDataUnavailable, "%v", err))
			} else {
				arts.Simulation = sim
			}

		case StateSimulated:
			edgeRes, err := o.calculator.Evaluate(arts.Simulation, arts.Context.Market, req.BetType)
			if err != nil {
				// Unpriced market: keep going, the debate and the
				// projection still make a renderable answer.
				stageErrs = append(stageErrs, types.NewStageError(
					"edge", types.ErrCodeNoLineProvided, "%v", err))
			} else {
				arts.Edge = edgeRes
			}

			deb, err := o.engine.Debate(debate.Input{
				Context:    arts.Context,
				Projection: arts.Projection,
				Simulation: arts.Simulation,
				Selection:  candidateSelection(arts.Edge, req.BetType),
			})
			if err != nil {
				stageErrs = append(stageErrs, types.NewStageError(
					"debate", types.ErrCodeDataUnavailable, "%v", err))
			} else {
				arts.Debate = deb
			}

		case StateDebated:
			o.decide(ctx, ev, arts)
			o.finish(ev, arts, stageErrs, retries)
			o.observe(ev, start)
			return ev, nil
		}

		next := Next(arts)
		if next != state {
			state = next
			continue
		}

		// The stage produced nothing. Retry from the top or terminate.
		if retries >= o.cfg.MaxRetries {
			o.finish(ev, arts, stageErrs, retries)
			if arts.Context == nil {
				ev.Quality = types.QualityUnavailable
				ev.Errors = append(ev.Errors, types.ErrCodeDataUnavailable)
			}
			o.logger.Warn("evaluation-exhausted-retries",
				zap.String("evaluation-id", ev.ID),
				zap.String("stalled-state", string(state)),
				zap.Int("retries", retries))
			o.observe(ev, start)
			return ev, nil
		}
		retries++
		RetriesTotal.Inc()
		arts, state = Retry(arts)
		stageErrs = nil
	}
}

// decide turns the artifacts into the final recommendation and persists a
// wager when the tier clears the bet threshold.
func (o *Orchestrator) decide(ctx context.Context, ev *types.Evaluation, arts Artifacts) {
	if arts.Edge == nil {
		ev.Recommendation = types.TierNoBet
		return
	}

	best := arts.Edge.Best()
	ev.Selection = best.Selection
	ev.Confidence = best.ModelProbability
	ev.Recommendation = best.Tier

	// The debate can only pull a recommendation down. A lost debate means
	// the opposing catalog found structural problems the edge math cannot
	// see, so the tier drops one notch.
	if arts.Debate != nil && arts.Debate.Winner == types.WinnerOpposing {
		ev.Recommendation = downgrade(best.Tier)
	}

	if ev.Recommendation != types.TierBet && ev.Recommendation != types.TierStrongBet {
		return
	}
	if o.store == nil {
		return
	}
	if o.guard != nil && !o.guard.IsEnabled() {
		o.logger.Warn("wager-persistence-suspended",
			zap.String("evaluation-id", ev.ID),
			zap.String("reason", "bankroll drawdown"))
		return
	}

	line := arts.Simulation.Line
	w := &types.Wager{
		ID:            ev.ID,
		CreatedAt:     ev.CreatedAt,
		EventID:       arts.Context.EventID,
		BetType:       ev.Request.BetType,
		Selection:     best.Selection,
		Stat:          ev.Request.Stat,
		Description:   describe(ev.Request, best.Selection, line),
		Line:          line,
		Price:         best.Price,
		Confidence:    best.ModelProbability,
		PredictedEdge: best.Edge,
		Tier:          ev.Recommendation,
		Stake:         best.SuggestedStake,
		Trace: types.ReasoningTrace{
			Projection: arts.Projection,
			Simulation: arts.Simulation,
			Edge:       arts.Edge,
			Debate:     arts.Debate,
		},
		Outcome: types.OutcomePending,
	}

	err := o.store.InsertWager(ctx, w)
	if err != nil {
		// The evaluation stands even when the ledger write fails.
		o.logger.Error("wager-persist-failed",
			zap.String("evaluation-id", ev.ID),
			zap.Error(err))
		ev.Errors = append(ev.Errors, fmt.Sprintf("persist: %v", err))
		return
	}
	if o.guard != nil {
		o.guard.RecordStake(w.Stake)
	}
}

// finish copies artifacts and error markers onto the evaluation.
func (o *Orchestrator) finish(ev *types.Evaluation, arts Artifacts, stageErrs []*types.StageError, retries int) {
	ev.Context = arts.Context
	ev.Projection = arts.Projection
	ev.Simulation = arts.Simulation
	ev.Edge = arts.Edge
	ev.Debate = arts.Debate
	ev.Retries = retries

	if arts.Context != nil {
		ev.Quality = arts.Context.Quality
	}
	if arts.Projection != nil && arts.Projection.InsufficientSample {
		ev.Errors = append(ev.Errors, types.ErrCodeInsufficientSample)
		// Thin samples soften the stated confidence.
		ev.Confidence *= 0.85
	}
	for _, se := range stageErrs {
		ev.Errors = append(ev.Errors, se.Error())
	}
}

func (o *Orchestrator) observe(ev *types.Evaluation, start time.Time) {
	EvaluationDurationSeconds.Observe(time.Since(start).Seconds())
	EvaluationsTotal.WithLabelValues(string(ev.Recommendation), string(ev.Quality)).Inc()

	o.logger.Info("wager-evaluated",
		zap.String("evaluation-id", ev.ID),
		zap.String("bet-type", string(ev.Request.BetType)),
		zap.String("recommendation", string(ev.Recommendation)),
		zap.String("selection", string(ev.Selection)),
		zap.Float64("confidence", ev.Confidence),
		zap.String("quality", string(ev.Quality)),
		zap.Int("retries", ev.Retries))
}

func (o *Orchestrator) kernelFor(depth string) *simulation.Kernel {
	draws := o.cfg.SimDraws
	switch depth {
	case "quick":
		draws = quickDraws
	case "deep":
		draws = deepDraws
	}
	return simulation.New(simulation.Config{
		Draws:              draws,
		Correlation:        o.cfg.SimCorrelation,
		Skewness:           o.cfg.SimSkewness,
		SkewMode:           o.cfg.SimSkewMode,
		OvertimeProb:       o.cfg.SimOTProb,
		OvertimePointsMean: o.cfg.SimOTPointsMean,
		OvertimePointsStd:  o.cfg.SimOTPointsStd,
		ScoreFloor:         o.cfg.SimScoreFloor,
		Seed:               o.cfg.SimSeed,
		Logger:             o.logger,
	})
}

func metricFor(betType types.BetType) simulation.Metric {
	switch betType {
	case types.BetTypeSpread:
		return simulation.MetricMargin
	case types.BetTypePlayerProp:
		return simulation.MetricValue
	default:
		return simulation.MetricTotal
	}
}

// resolveLine prefers an explicit request line over the market snapshot.
func resolveLine(req types.EvaluationRequest, ctx *types.Context) (float64, bool) {
	if req.Line != nil {
		return *req.Line, true
	}
	if ctx.Market.HasLine {
		return ctx.Market.Line, true
	}
	return 0, false
}

// candidateSelection picks the side the debate argues about: the edge
// calculator's best side when prices exist, the over/home side otherwise.
func candidateSelection(edgeRes *types.EdgeResult, betType types.BetType) types.Selection {
	if edgeRes != nil {
		return edgeRes.Best().Selection
	}
	if betType == types.BetTypeSpread {
		return types.SelectionHome
	}
	return types.SelectionOver
}

func downgrade(tier types.RecommendationTier) types.RecommendationTier {
	switch tier {
	case types.TierStrongBet:
		return types.TierBet
	case types.TierBet:
		return types.TierLean
	case types.TierLean:
		return types.TierNoBet
	default:
		return tier
	}
}

func describe(req types.EvaluationRequest, selection types.Selection, line float64) string {
	switch req.BetType {
	case types.BetTypePlayerProp:
		return fmt.Sprintf("%s %.1f %s %s", selection, line, req.Player, req.Stat)
	case types.BetTypeSpread:
		return fmt.Sprintf("%s %+.1f %s@%s", selection, line, req.AwayTeam, req.HomeTeam)
	default:
		return fmt.Sprintf("%s %.1f %s@%s", selection, line, req.AwayTeam, req.HomeTeam)
	}
}

// fetchContext assembles the immutable context snapshot. Every warehouse
// call that fails lands in Missing and the error list; only a context with
// no usable sides at all comes back nil.
func (o *Orchestrator) fetchContext(ctx context.Context, req types.EvaluationRequest, stageErrs []*types.StageError) (*types.Context, []*types.StageError) {
	if req.BetType == types.BetTypePlayerProp {
		return o.fetchPropContext(ctx, req, stageErrs)
	}
	return o.fetchTeamContext(ctx, req, stageErrs)
}

func (o *Orchestrator) fetchTeamContext(ctx context.Context, req types.EvaluationRequest, stageErrs []*types.StageError) (*types.Context, []*types.StageError) {
	home, err := o.access.ResolveEntity(ctx, req.HomeTeam)
	if err != nil {
		stageErrs = append(stageErrs, types.NewStageError(
			"fetch", types.ErrCodeDataUnavailable, "resolve home %q: %v", req.HomeTeam, err))
		return nil, stageErrs
	}
	away, err := o.access.ResolveEntity(ctx, req.AwayTeam)
	if err != nil {
		stageErrs = append(stageErrs, types.NewStageError(
			"fetch", types.ErrCodeDataUnavailable, "resolve away %q: %v", req.AwayTeam, err))
		return nil, stageErrs
	}

	now := time.Now().UTC()
	c := &types.Context{
		RequestID: uuid.NewString(),
		BetType:   req.BetType,
		EventID:   fmt.Sprintf("%s:%s@%s", now.Format("2006-01-02"), away.ID, home.ID),
		Home:      types.SideContext{EntityID: home.ID, Name: home.Name, IsHome: true},
		Away:      types.SideContext{EntityID: away.ID, Name: away.Name},
		FetchedAt: now,
	}

	var mu sync.Mutex
	miss := func(field string, err error) {
		mu.Lock()
		defer mu.Unlock()
		c.Missing = append(c.Missing, field)
		o.logger.Debug("context-field-missing",
			zap.String("field", field),
			zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, side := range []struct {
		id   string
		dst  *types.SideContext
		name string
	}{
		{home.ID, &c.Home, "home"},
		{away.ID, &c.Away, "away"},
	} {
		side := side
		for _, win := range []struct {
			window dataaccess.Window
			slot   **types.WindowAggregates
		}{
			{dataaccess.WindowSeason, &side.dst.Season},
			{dataaccess.WindowLast15, &side.dst.Last15},
			{dataaccess.WindowLast10, &side.dst.Last10},
			{dataaccess.WindowLast5, &side.dst.Last5},
		} {
			win := win
			g.Go(func() error {
				agg, err := o.access.FetchAggregates(gctx, side.id, win.window)
				if err != nil {
					miss(fmt.Sprintf("%s.%s", side.name, win.window), err)
					return nil
				}
				mu.Lock()
				*win.slot = agg
				mu.Unlock()
				return nil
			})
		}
	}

	g.Go(func() error {
		h2h, err := o.access.FetchHeadToHead(gctx, home.ID, away.ID, 10)
		if err != nil {
			miss("head_to_head", err)
			return nil
		}
		mu.Lock()
		c.HeadToHead = h2h
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		rest, err := o.access.FetchRestAndDensity(gctx, home.ID, now)
		if err != nil {
			miss("home.rest", err)
			return nil
		}
		mu.Lock()
		c.HomeRest = *rest
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		rest, err := o.access.FetchRestAndDensity(gctx, away.ID, now)
		if err != nil {
			miss("away.rest", err)
			return nil
		}
		mu.Lock()
		c.AwayRest = *rest
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		splits, err := o.access.FetchVenueSplits(gctx, home.ID, true)
		if err != nil {
			miss("home.venue", err)
			return nil
		}
		mu.Lock()
		c.HomeVenue = *splits
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		splits, err := o.access.FetchVenueSplits(gctx, away.ID, false)
		if err != nil {
			miss("away.venue", err)
			return nil
		}
		mu.Lock()
		c.AwayVenue = *splits
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		market, err := o.access.FetchMarketOdds(gctx, c.EventID, req.BetType)
		if err != nil {
			miss("market", err)
			return nil
		}
		mu.Lock()
		c.Market = *market
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		avg, err := o.access.LeagueAveragePoints(gctx)
		if err != nil {
			miss("league_avg", err)
			return nil
		}
		mu.Lock()
		c.LeagueAvgPoints = avg
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	if c.Home.WindowCount() == 0 || c.Away.WindowCount() == 0 {
		stageErrs = append(stageErrs, types.NewStageError(
			"fetch", types.ErrCodeDataUnavailable,
			"no aggregate windows for %s vs %s", home.Name, away.Name))
		return nil, stageErrs
	}

	c.Quality = types.QualityFresh
	if len(c.Missing) > 0 {
		c.Quality = types.QualityPartial
	}
	return c, stageErrs
}

func (o *Orchestrator) fetchPropContext(ctx context.Context, req types.EvaluationRequest, stageErrs []*types.StageError) (*types.Context, []*types.StageError) {
	player, err := o.access.ResolveEntity(ctx, req.Player)
	if err != nil {
		stageErrs = append(stageErrs, types.NewStageError(
			"fetch", types.ErrCodeDataUnavailable, "resolve player %q: %v", req.Player, err))
		return nil, stageErrs
	}

	now := time.Now().UTC()
	c := &types.Context{
		RequestID: uuid.NewString(),
		BetType:   req.BetType,
		EventID:   fmt.Sprintf("%s:player:%s", now.Format("2006-01-02"), player.ID),
		Prop: &types.PropContext{
			PlayerID:   player.ID,
			PlayerName: player.Name,
			Stat:       req.Stat,
		},
		FetchedAt: now,
	}

	var mu sync.Mutex
	miss := func(field string, err error) {
		mu.Lock()
		defer mu.Unlock()
		c.Missing = append(c.Missing, field)
		o.logger.Debug("context-field-missing",
			zap.String("field", field),
			zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, win := range []struct {
		window dataaccess.Window
		slot   **types.WindowAggregates
	}{
		{dataaccess.WindowSeason, &c.Prop.Season},
		{dataaccess.WindowLast15, &c.Prop.Last15},
		{dataaccess.WindowLast10, &c.Prop.Last10},
		{dataaccess.WindowLast5, &c.Prop.Last5},
	} {
		win := win
		g.Go(func() error {
			agg, err := o.access.FetchAggregates(gctx, player.ID, win.window)
			if err != nil {
				miss(fmt.Sprintf("prop.%s", win.window), err)
				return nil
			}
			mu.Lock()
			*win.slot = agg
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		rest, err := o.access.FetchRestAndDensity(gctx, player.ID, now)
		if err != nil {
			miss("prop.rest", err)
			return nil
		}
		mu.Lock()
		c.HomeRest = *rest
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		market, err := o.access.FetchMarketOdds(gctx, c.EventID, req.BetType)
		if err != nil {
			miss("market", err)
			return nil
		}
		mu.Lock()
		c.Market = *market
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	windows := 0
	for _, w := range []*types.WindowAggregates{c.Prop.Season, c.Prop.Last15, c.Prop.Last10, c.Prop.Last5} {
		if w != nil {
			windows++
		}
	}
	if windows == 0 {
		stageErrs = append(stageErrs, types.NewStageError(
			"fetch", types.ErrCodeDataUnavailable,
			"no aggregate windows for player %s", player.Name))
		return nil, stageErrs
	}

	c.Quality = types.QualityFresh
	if len(c.Missing) > 0 {
		c.Quality = types.QualityPartial
	}
	return c, stageErrs
}
