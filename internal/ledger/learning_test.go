package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sharpline/sharpline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAnalyzer(t *testing.T, store Store) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(&AnalyzerConfig{
		Store:            store,
		Logger:           zap.NewNop(),
		Interval:         time.Hour,
		ThresholdVersion: "v1",
	})
	require.NoError(t, err)
	return analyzer
}

// settle inserts a wager and immediately resolves it with the given outcome.
func settle(t *testing.T, store *memStore, id string, betType types.BetType, edge, confidence float64, outcome types.WagerOutcome) {
	t.Helper()
	ctx := context.Background()

	w := pendingWager(id, "evt-"+id, types.SelectionOver, 220.5, 1.91, confidence)
	w.BetType = betType
	w.PredictedEdge = edge
	require.NoError(t, store.InsertWager(ctx, w))

	ok, err := store.SettleWager(ctx, id, outcome, 0, 0, UnitProfit(outcome, w.Price))
	require.NoError(t, err)
	require.True(t, ok)
}

func ruleConditions(rules []types.LearningRule) map[string]bool {
	out := make(map[string]bool, len(rules))
	for _, r := range rules {
		out[r.Condition] = true
	}
	return out
}

func TestAnalyzerFlagsHighEdgeLosers(t *testing.T) {
	store := newMemStore()

	// Six high-edge wagers, four of them losers.
	for i := 0; i < 6; i++ {
		outcome := types.OutcomeLoss
		if i < 2 {
			outcome = types.OutcomeWin
		}
		settle(t, store, fmt.Sprintf("w%d", i), types.BetTypeTotal, 0.12, 0.55, outcome)
	}

	created, err := newTestAnalyzer(t, store).RunPass(context.Background())
	require.NoError(t, err)

	conditions := ruleConditions(created)
	require.True(t, conditions["predicted_edge>0.08"])

	var rule types.LearningRule
	for _, r := range created {
		if r.Condition == "predicted_edge>0.08" {
			rule = r
		}
	}
	assert.Negative(t, rule.Adjustment)
	assert.Equal(t, 6, rule.Triggers)
	assert.True(t, rule.Active)
	assert.Equal(t, "v1", rule.ThresholdVersion)
}

func TestAnalyzerFlagsOverconfidentBucket(t *testing.T) {
	store := newMemStore()

	// Six wagers stated around 75% confidence, only one winner.
	for i := 0; i < 6; i++ {
		outcome := types.OutcomeLoss
		if i == 0 {
			outcome = types.OutcomeWin
		}
		settle(t, store, fmt.Sprintf("w%d", i), types.BetTypeTotal, 0.02, 0.75, outcome)
	}

	created, err := newTestAnalyzer(t, store).RunPass(context.Background())
	require.NoError(t, err)
	assert.True(t, ruleConditions(created)["confidence_bucket_70_80_overconfident"])
}

func TestAnalyzerFlagsUnderperformingBetType(t *testing.T) {
	store := newMemStore()

	// Spread wagers bleed; totals do fine and stay below the sample bar.
	for i := 0; i < 6; i++ {
		outcome := types.OutcomeLoss
		if i == 0 {
			outcome = types.OutcomeWin
		}
		settle(t, store, fmt.Sprintf("s%d", i), types.BetTypeSpread, 0.02, 0.45, outcome)
	}
	settle(t, store, "t0", types.BetTypeTotal, 0.02, 0.45, types.OutcomeWin)

	created, err := newTestAnalyzer(t, store).RunPass(context.Background())
	require.NoError(t, err)

	conditions := ruleConditions(created)
	assert.True(t, conditions["bet_type=spread_underperforming"])
	assert.False(t, conditions["bet_type=total_underperforming"])
}

func TestAnalyzerDeduplicatesAcrossPasses(t *testing.T) {
	store := newMemStore()

	for i := 0; i < 6; i++ {
		settle(t, store, fmt.Sprintf("w%d", i), types.BetTypeTotal, 0.12, 0.55, types.OutcomeLoss)
	}

	analyzer := newTestAnalyzer(t, store)
	ctx := context.Background()

	first, err := analyzer.RunPass(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := analyzer.RunPass(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestAnalyzerRespectsSampleMinimum(t *testing.T) {
	store := newMemStore()

	// Three losers is an anecdote, not a pattern.
	for i := 0; i < 3; i++ {
		settle(t, store, fmt.Sprintf("w%d", i), types.BetTypeTotal, 0.12, 0.55, types.OutcomeLoss)
	}

	created, err := newTestAnalyzer(t, store).RunPass(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestAnalyzerHonorsConfiguredThresholds(t *testing.T) {
	store := newMemStore()

	// Four decided high-edge wagers, three of them losers: below the v1
	// sample bar, above a configured bar of three.
	for i := 0; i < 4; i++ {
		outcome := types.OutcomeLoss
		if i == 0 {
			outcome = types.OutcomeWin
		}
		settle(t, store, fmt.Sprintf("w%d", i), types.BetTypeTotal, 0.12, 0.55, outcome)
	}

	created, err := newTestAnalyzer(t, store).RunPass(context.Background())
	require.NoError(t, err)
	require.Empty(t, created, "v1 defaults must not flag four samples")

	tuned, err := NewAnalyzer(&AnalyzerConfig{
		Store:            store,
		Logger:           zap.NewNop(),
		Interval:         time.Hour,
		ThresholdVersion: "v1",
		MinSamples:       3,
	})
	require.NoError(t, err)

	created, err = tuned.RunPass(context.Background())
	require.NoError(t, err)
	assert.True(t, ruleConditions(created)["predicted_edge>0.08"])
}

func TestAnalyzerEdgeThresholdOverrideNamesCondition(t *testing.T) {
	store := newMemStore()

	// Edges of 0.10 clear the default 0.08 bar but not a raised 0.11 bar.
	for i := 0; i < 6; i++ {
		settle(t, store, fmt.Sprintf("w%d", i), types.BetTypeSpread, 0.10, 0.55, types.OutcomeLoss)
	}

	tuned, err := NewAnalyzer(&AnalyzerConfig{
		Store:            store,
		Logger:           zap.NewNop(),
		Interval:         time.Hour,
		ThresholdVersion: "v1",
		EdgeThreshold:    0.11,
	})
	require.NoError(t, err)

	created, err := tuned.RunPass(context.Background())
	require.NoError(t, err)
	assert.False(t, ruleConditions(created)["predicted_edge>0.11"],
		"no wager clears the raised edge bar")
}

func TestAnalyzerRejectsUnknownThresholdVersion(t *testing.T) {
	_, err := NewAnalyzer(&AnalyzerConfig{
		Store:            newMemStore(),
		Logger:           zap.NewNop(),
		ThresholdVersion: "v999",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold version")
}
