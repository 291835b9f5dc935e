package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds ledger database configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore opens the ledger database and verifies the connection.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	cfg.Logger.Info("ledger-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{db: db, logger: cfg.Logger}, nil
}

// NewPostgresStoreFromDB wraps an existing handle; used by tests.
func NewPostgresStoreFromDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// InsertWager persists a new wager with outcome PENDING.
func (p *PostgresStore) InsertWager(ctx context.Context, w *types.Wager) error {
	trace, err := json.Marshal(w.Trace)
	if err != nil {
		return fmt.Errorf("marshal reasoning trace: %w", err)
	}

	query := `
		INSERT INTO wagers (
			id, created_at, event_id, bet_type, selection, stat, description,
			line, price, confidence, predicted_edge, tier, stake, trace, outcome
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		w.ID, w.CreatedAt, w.EventID, string(w.BetType), string(w.Selection),
		w.Stat, w.Description, w.Line, w.Price, w.Confidence, w.PredictedEdge,
		string(w.Tier), w.Stake, trace, string(types.OutcomePending),
	)
	if err != nil {
		return fmt.Errorf("insert wager: %w", err)
	}

	WagersCreatedTotal.WithLabelValues(string(w.BetType)).Inc()
	p.logger.Debug("wager-stored",
		zap.String("wager-id", w.ID),
		zap.String("description", w.Description),
		zap.Float64("confidence", w.Confidence))

	return nil
}

// UnsettledWagers returns pending wagers oldest first.
func (p *PostgresStore) UnsettledWagers(ctx context.Context, limit int) ([]*types.Wager, error) {
	query := selectWagers + `
		WHERE outcome = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`

	return p.queryWagers(ctx, query, limit)
}

// SettledWagers returns settled wagers newest first.
func (p *PostgresStore) SettledWagers(ctx context.Context, limit int) ([]*types.Wager, error) {
	query := selectWagers + `
		WHERE outcome <> 'PENDING'
		ORDER BY settled_at DESC
		LIMIT $1
	`

	return p.queryWagers(ctx, query, limit)
}

const selectWagers = `
	SELECT id, created_at, event_id, bet_type, selection, stat, description,
	       line, price, confidence, predicted_edge, tier, stake, trace,
	       outcome, realized_value, realized_margin, profit, settled_at
	FROM wagers
`

func (p *PostgresStore) queryWagers(ctx context.Context, query string, args ...any) ([]*types.Wager, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wagers: %w", err)
	}
	defer rows.Close()

	var wagers []*types.Wager
	for rows.Next() {
		var w types.Wager
		var trace []byte
		var settledAt sql.NullTime
		var realizedValue, realizedMargin, profit sql.NullFloat64

		err = rows.Scan(
			&w.ID, &w.CreatedAt, &w.EventID, &w.BetType, &w.Selection, &w.Stat,
			&w.Description, &w.Line, &w.Price, &w.Confidence, &w.PredictedEdge,
			&w.Tier, &w.Stake, &trace, &w.Outcome,
			&realizedValue, &realizedMargin, &profit, &settledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wager row: %w", err)
		}

		if len(trace) > 0 {
			err = json.Unmarshal(trace, &w.Trace)
			if err != nil {
				return nil, fmt.Errorf("unmarshal trace for wager %s: %w", w.ID, err)
			}
		}
		w.RealizedValue = realizedValue.Float64
		w.RealizedMargin = realizedMargin.Float64
		w.Profit = profit.Float64
		if settledAt.Valid {
			t := settledAt.Time
			w.SettledAt = &t
		}

		wagers = append(wagers, &w)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate wager rows: %w", err)
	}

	return wagers, nil
}

// SettleWager writes the outcome and bumps the calibration bucket in one
// transaction. The row lock plus the PENDING check is the idempotency
// guard: a concurrent or repeated settlement of the same wager observes a
// terminal outcome and backs off without touching the bucket.
func (p *PostgresStore) SettleWager(ctx context.Context, id string, outcome types.WagerOutcome, realizedValue, realizedMargin, profit float64) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var confidence float64
	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT confidence, outcome FROM wagers WHERE id = $1 FOR UPDATE`, id,
	).Scan(&confidence, &current)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("wager %s not found", id)
	}
	if err != nil {
		return false, fmt.Errorf("lock wager %s: %w", id, err)
	}

	if current != string(types.OutcomePending) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wagers
		SET outcome = $2, realized_value = $3, realized_margin = $4,
		    profit = $5, settled_at = $6
		WHERE id = $1
	`, id, string(outcome), realizedValue, realizedMargin, profit, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update wager %s: %w", id, err)
	}

	low, high := BucketRange(confidence)
	wins, losses, pushes := 0, 0, 0
	switch outcome {
	case types.OutcomeWin:
		wins = 1
	case types.OutcomeLoss:
		losses = 1
	case types.OutcomePush:
		pushes = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calibration_buckets (low, high, wins, losses, pushes, calibration_error)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (low) DO UPDATE SET
			wins = calibration_buckets.wins + EXCLUDED.wins,
			losses = calibration_buckets.losses + EXCLUDED.losses,
			pushes = calibration_buckets.pushes + EXCLUDED.pushes
	`, low, high, wins, losses, pushes)
	if err != nil {
		return false, fmt.Errorf("update calibration bucket [%v, %v): %w", low, high, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE calibration_buckets
		SET calibration_error = ABS(
			(low + high) / 200.0 -
			wins::float / NULLIF(wins + losses, 0)
		)
		WHERE low = $1 AND wins + losses > 0
	`, low)
	if err != nil {
		return false, fmt.Errorf("recompute calibration error: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return false, fmt.Errorf("commit settlement tx: %w", err)
	}

	p.logger.Debug("wager-settled",
		zap.String("wager-id", id),
		zap.String("outcome", string(outcome)),
		zap.Float64("profit", profit))

	return true, nil
}

// CalibrationBuckets returns all buckets ordered by range.
func (p *PostgresStore) CalibrationBuckets(ctx context.Context) ([]types.CalibrationBucket, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT low, high, wins, losses, pushes, calibration_error
		FROM calibration_buckets
		ORDER BY low
	`)
	if err != nil {
		return nil, fmt.Errorf("query calibration buckets: %w", err)
	}
	defer rows.Close()

	var buckets []types.CalibrationBucket
	for rows.Next() {
		var b types.CalibrationBucket
		err = rows.Scan(&b.Low, &b.High, &b.Wins, &b.Losses, &b.Pushes, &b.CalibrationError)
		if err != nil {
			return nil, fmt.Errorf("scan calibration bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate calibration buckets: %w", err)
	}

	return buckets, nil
}

// InsertLearningRule appends a new rule row.
func (p *PostgresStore) InsertLearningRule(ctx context.Context, rule *types.LearningRule) error {
	query := `
		INSERT INTO learning_rules (
			id, created_at, condition, adjustment, evidence, triggers, active, threshold_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.db.ExecContext(ctx, query,
		rule.ID, rule.CreatedAt, rule.Condition, rule.Adjustment,
		rule.Evidence, rule.Triggers, rule.Active, rule.ThresholdVersion,
	)
	if err != nil {
		return fmt.Errorf("insert learning rule: %w", err)
	}

	LearningRulesCreatedTotal.Inc()
	p.logger.Info("learning-rule-created",
		zap.String("rule-id", rule.ID),
		zap.String("condition", rule.Condition),
		zap.Float64("adjustment", rule.Adjustment))

	return nil
}

// ActiveLearningRules returns rules that have not been deactivated.
func (p *PostgresStore) ActiveLearningRules(ctx context.Context) ([]types.LearningRule, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, created_at, condition, adjustment, evidence, triggers, active, threshold_version
		FROM learning_rules
		WHERE active = TRUE
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query learning rules: %w", err)
	}
	defer rows.Close()

	var rules []types.LearningRule
	for rows.Next() {
		var r types.LearningRule
		err = rows.Scan(&r.ID, &r.CreatedAt, &r.Condition, &r.Adjustment,
			&r.Evidence, &r.Triggers, &r.Active, &r.ThresholdVersion)
		if err != nil {
			return nil, fmt.Errorf("scan learning rule: %w", err)
		}
		rules = append(rules, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate learning rules: %w", err)
	}

	return rules, nil
}

// DeactivateLearningRule flips a rule inactive; the row is never deleted.
func (p *PostgresStore) DeactivateLearningRule(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE learning_rules SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate learning rule %s: %w", id, err)
	}

	p.logger.Info("learning-rule-deactivated", zap.String("rule-id", id))
	return nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-ledger-store")
	return p.db.Close()
}
