package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// SettlerConfig holds settlement loop configuration.
type SettlerConfig struct {
	Store     Store
	Access    dataaccess.Access
	Logger    *zap.Logger
	Interval  time.Duration
	BatchSize int
}

// Settler resolves pending wagers against final results. Each pass fetches a
// batch of unsettled wagers, looks up the realized value for each, and writes
// the outcome. A wager whose event is not final yet is skipped and retried on
// the next pass; one bad wager never aborts the batch.
type Settler struct {
	store     Store
	access    dataaccess.Access
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
}

// NewSettler creates a settlement engine.
func NewSettler(cfg *SettlerConfig) *Settler {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &Settler{
		store:     cfg.Store,
		access:    cfg.Access,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		batchSize: batch,
	}
}

// Run executes settlement passes on the configured interval until the
// context is cancelled.
func (s *Settler) Run(ctx context.Context) error {
	s.logger.Info("settler-started", zap.Duration("interval", s.interval))

	timer := time.NewTimer(jittered(s.interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settler-stopped")
			return ctx.Err()
		case <-timer.C:
			settled, err := s.RunPass(ctx)
			if err != nil {
				s.logger.Error("settlement-pass-failed", zap.Error(err))
			} else if settled > 0 {
				s.logger.Info("settlement-pass-complete", zap.Int("settled", settled))
			}
			timer.Reset(jittered(s.interval))
		}
	}
}

// jittered spreads passes by up to 20% so co-scheduled instances do not hit
// the ledger in lockstep.
func jittered(d time.Duration) time.Duration {
	fifth := int64(d / 5)
	if fifth <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(fifth))
}

// RunPass settles every resolvable pending wager once and returns how many
// were settled.
func (s *Settler) RunPass(ctx context.Context) (int, error) {
	start := time.Now()
	pending, err := s.store.UnsettledWagers(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load unsettled wagers: %w", err)
	}

	settled := 0
	for _, w := range pending {
		ok, err := s.settleOne(ctx, w)
		if err != nil {
			if errors.Is(err, dataaccess.ErrNotFound) {
				// Event not final yet; the wager stays pending for
				// the next pass.
				s.logger.Debug("wager-unresolvable",
					zap.String("wager-id", w.ID),
					zap.String("event-id", w.EventID),
					zap.String("code", types.ErrCodeSettlementUnresolvable))
				continue
			}
			SettlementErrorsTotal.Inc()
			s.logger.Warn("wager-settlement-error",
				zap.String("wager-id", w.ID),
				zap.Error(err))
			continue
		}
		if ok {
			settled++
		}
	}

	SettlementPassDurationSeconds.Observe(time.Since(start).Seconds())
	return settled, nil
}

func (s *Settler) settleOne(ctx context.Context, w *types.Wager) (bool, error) {
	realized, err := s.access.FetchRealizedResult(ctx, w.EventID, w.BetType, w.Stat)
	if err != nil {
		return false, err
	}

	outcome := Classify(w.Selection, w.Line, realized)
	profit := UnitProfit(outcome, w.Price)

	realizedValue, realizedMargin := realized, 0.0
	if w.BetType == types.BetTypeSpread {
		realizedValue, realizedMargin = 0.0, realized
	}

	ok, err := s.store.SettleWager(ctx, w.ID, outcome, realizedValue, realizedMargin, profit)
	if err != nil {
		return false, fmt.Errorf("settle wager %s: %w", w.ID, err)
	}
	if !ok {
		// Another pass got there first.
		return false, nil
	}

	SettlementsTotal.WithLabelValues(string(outcome)).Inc()
	s.logger.Info("wager-settled",
		zap.String("wager-id", w.ID),
		zap.String("description", w.Description),
		zap.String("outcome", string(outcome)),
		zap.Float64("realized", realized),
		zap.Float64("profit", profit))

	return true, nil
}

// Classify maps a realized value onto WIN, LOSS, or PUSH for the selection.
// For spreads the realized value is the home margin and the line is the
// home-cover threshold, so HOME wins above the line and AWAY below it.
func Classify(selection types.Selection, line, realized float64) types.WagerOutcome {
	if realized == line {
		return types.OutcomePush
	}

	var won bool
	switch selection {
	case types.SelectionOver, types.SelectionHome:
		won = realized > line
	case types.SelectionUnder, types.SelectionAway:
		won = realized < line
	}

	if won {
		return types.OutcomeWin
	}
	return types.OutcomeLoss
}

// UnitProfit returns profit per unit staked at the given decimal price:
// price-1 on a win, -1 on a loss, 0 on a push.
func UnitProfit(outcome types.WagerOutcome, price float64) float64 {
	switch outcome {
	case types.OutcomeWin:
		return price - 1
	case types.OutcomeLoss:
		return -1
	default:
		return 0
	}
}
