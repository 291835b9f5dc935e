package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// Thresholds is one versioned set of pattern-mining cutoffs. Rules record the
// version that produced them so threshold changes never silently reinterpret
// old evidence.
type Thresholds struct {
	Version string
	// MinSamples is the minimum decided wagers before a pattern counts.
	MinSamples int
	// HighEdge marks a predicted edge as suspiciously large.
	HighEdge float64
	// LossRate is the loss share above which a cohort is underperforming.
	LossRate float64
	// OverconfidenceError is the calibration error that flags a bucket.
	OverconfidenceError float64
}

var thresholdTable = map[string]Thresholds{
	"v1": {
		Version:             "v1",
		MinSamples:          5,
		HighEdge:            0.08,
		LossRate:            0.5,
		OverconfidenceError: 0.10,
	},
}

// ThresholdsFor returns the named threshold set.
func ThresholdsFor(version string) (Thresholds, error) {
	t, ok := thresholdTable[version]
	if !ok {
		return Thresholds{}, fmt.Errorf("unknown threshold version %q", version)
	}
	return t, nil
}

// AnalyzerConfig holds learning loop configuration.
type AnalyzerConfig struct {
	Store            Store
	Logger           *zap.Logger
	Interval         time.Duration
	BatchSize        int
	ThresholdVersion string

	// MinSamples, EdgeThreshold and LossRate override the versioned
	// defaults when positive; zero keeps the table value. Rules still
	// record the table version that seeded them.
	MinSamples    int
	EdgeThreshold float64
	LossRate      float64
}

// Analyzer mines settled wagers for systematic errors and records them as
// learning rules. Rules are append-only and deduplicated by condition, so a
// pattern that persists across runs is written exactly once.
type Analyzer struct {
	store      Store
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
	thresholds Thresholds
}

// NewAnalyzer creates a learning analyzer.
func NewAnalyzer(cfg *AnalyzerConfig) (*Analyzer, error) {
	thresholds, err := ThresholdsFor(cfg.ThresholdVersion)
	if err != nil {
		return nil, err
	}
	if cfg.MinSamples > 0 {
		thresholds.MinSamples = cfg.MinSamples
	}
	if cfg.EdgeThreshold > 0 {
		thresholds.HighEdge = cfg.EdgeThreshold
	}
	if cfg.LossRate > 0 {
		thresholds.LossRate = cfg.LossRate
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Analyzer{
		store:      cfg.Store,
		logger:     cfg.Logger,
		interval:   cfg.Interval,
		batchSize:  batch,
		thresholds: thresholds,
	}, nil
}

// Run executes analysis passes on the configured interval until the context
// is cancelled.
func (a *Analyzer) Run(ctx context.Context) error {
	a.logger.Info("analyzer-started",
		zap.Duration("interval", a.interval),
		zap.String("threshold-version", a.thresholds.Version))

	timer := time.NewTimer(jittered(a.interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("analyzer-stopped")
			return ctx.Err()
		case <-timer.C:
			created, err := a.RunPass(ctx)
			if err != nil {
				a.logger.Error("learning-pass-failed", zap.Error(err))
			} else if len(created) > 0 {
				a.logger.Info("learning-pass-complete", zap.Int("rules-created", len(created)))
			}
			timer.Reset(jittered(a.interval))
		}
	}
}

// RunPass mines the settled ledger once and persists any new rules.
func (a *Analyzer) RunPass(ctx context.Context) ([]types.LearningRule, error) {
	settled, err := a.store.SettledWagers(ctx, a.batchSize)
	if err != nil {
		return nil, fmt.Errorf("load settled wagers: %w", err)
	}
	buckets, err := a.store.CalibrationBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load calibration buckets: %w", err)
	}
	active, err := a.store.ActiveLearningRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}

	existing := make(map[string]bool, len(active))
	for _, r := range active {
		existing[r.Condition] = true
	}

	candidates := a.mineHighEdgeLosers(settled)
	candidates = append(candidates, a.mineOverconfidentBuckets(buckets)...)
	candidates = append(candidates, a.mineBetTypeUnderperformance(settled)...)

	var created []types.LearningRule
	for _, rule := range candidates {
		if existing[rule.Condition] {
			continue
		}
		err = a.store.InsertLearningRule(ctx, &rule)
		if err != nil {
			return created, fmt.Errorf("persist rule %q: %w", rule.Condition, err)
		}
		existing[rule.Condition] = true
		created = append(created, rule)
	}

	return created, nil
}

// mineHighEdgeLosers flags the cohort of wagers whose predicted edge exceeded
// the high-edge cutoff but that lost more often than not. A model that is
// most wrong when it is most sure needs its largest edges shaded down.
func (a *Analyzer) mineHighEdgeLosers(settled []*types.Wager) []types.LearningRule {
	wins, losses := 0, 0
	for _, w := range settled {
		if w.PredictedEdge <= a.thresholds.HighEdge {
			continue
		}
		switch w.Outcome {
		case types.OutcomeWin:
			wins++
		case types.OutcomeLoss:
			losses++
		}
	}

	decided := wins + losses
	if decided < a.thresholds.MinSamples {
		return nil
	}
	lossRate := float64(losses) / float64(decided)
	if lossRate <= a.thresholds.LossRate {
		return nil
	}

	return []types.LearningRule{a.newRule(
		fmt.Sprintf("predicted_edge>%.2f", a.thresholds.HighEdge),
		-(lossRate-0.5)*0.1,
		fmt.Sprintf("%d of %d high-edge wagers lost (loss rate %.2f)", losses, decided, lossRate),
		decided,
	)}
}

// mineOverconfidentBuckets flags confidence buckets whose realized win rate
// runs materially below the stated midpoint.
func (a *Analyzer) mineOverconfidentBuckets(buckets []types.CalibrationBucket) []types.LearningRule {
	var rules []types.LearningRule
	for _, b := range buckets {
		if b.Decided() < a.thresholds.MinSamples {
			continue
		}
		midpoint := (b.Low + b.High) / 200.0
		gap := midpoint - b.WinRate()
		if gap <= a.thresholds.OverconfidenceError {
			continue
		}
		rules = append(rules, a.newRule(
			fmt.Sprintf("confidence_bucket_%.0f_%.0f_overconfident", b.Low, b.High),
			-gap,
			fmt.Sprintf("bucket [%.0f, %.0f) win rate %.2f vs stated %.2f over %d decided",
				b.Low, b.High, b.WinRate(), midpoint, b.Decided()),
			b.Decided(),
		))
	}
	return rules
}

// mineBetTypeUnderperformance flags bet types that are losing money overall.
func (a *Analyzer) mineBetTypeUnderperformance(settled []*types.Wager) []types.LearningRule {
	type tally struct {
		wins, losses int
		profit       float64
	}
	byType := make(map[types.BetType]*tally)
	for _, w := range settled {
		t := byType[w.BetType]
		if t == nil {
			t = &tally{}
			byType[w.BetType] = t
		}
		switch w.Outcome {
		case types.OutcomeWin:
			t.wins++
		case types.OutcomeLoss:
			t.losses++
		}
		t.profit += w.Profit
	}

	var rules []types.LearningRule
	for betType, t := range byType {
		decided := t.wins + t.losses
		if decided < a.thresholds.MinSamples {
			continue
		}
		lossRate := float64(t.losses) / float64(decided)
		if t.profit >= 0 || lossRate <= a.thresholds.LossRate {
			continue
		}
		rules = append(rules, a.newRule(
			fmt.Sprintf("bet_type=%s_underperforming", betType),
			-math.Min(lossRate-0.5, 0.25)*0.1,
			fmt.Sprintf("%s wagers at %.2f units over %d decided (loss rate %.2f)",
				betType, t.profit, decided, lossRate),
			decided,
		))
	}
	return rules
}

func (a *Analyzer) newRule(condition string, adjustment float64, evidence string, triggers int) types.LearningRule {
	return types.LearningRule{
		ID:               uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
		Condition:        condition,
		Adjustment:       adjustment,
		Evidence:         evidence,
		Triggers:         triggers,
		Active:           true,
		ThresholdVersion: a.thresholds.Version,
	}
}
