package ledger

import (
	"context"

	"github.com/sharpline/sharpline/pkg/types"
)

// Store is the durable wager ledger. Inserts are append-only; a wager's
// outcome is written exactly once; learning rules are never deleted.
type Store interface {
	// InsertWager persists a new wager with outcome PENDING.
	InsertWager(ctx context.Context, w *types.Wager) error

	// UnsettledWagers returns up to limit wagers awaiting settlement,
	// oldest first.
	UnsettledWagers(ctx context.Context, limit int) ([]*types.Wager, error)

	// SettleWager records the outcome and updates the owning calibration
	// bucket in one atomic transaction. It returns false without touching
	// anything when the wager is already settled, which makes retried
	// settlement of the same wager a no-op.
	SettleWager(ctx context.Context, id string, outcome types.WagerOutcome, realizedValue, realizedMargin, profit float64) (bool, error)

	// SettledWagers returns up to limit settled wagers, newest first.
	SettledWagers(ctx context.Context, limit int) ([]*types.Wager, error)

	// CalibrationBuckets returns all buckets ordered by range.
	CalibrationBuckets(ctx context.Context) ([]types.CalibrationBucket, error)

	// InsertLearningRule appends a new rule.
	InsertLearningRule(ctx context.Context, rule *types.LearningRule) error

	// ActiveLearningRules returns rules that have not been deactivated.
	ActiveLearningRules(ctx context.Context) ([]types.LearningRule, error)

	// DeactivateLearningRule marks a rule inactive; the row remains.
	DeactivateLearningRule(ctx context.Context, id string) error

	// Close releases the underlying handles.
	Close() error
}
