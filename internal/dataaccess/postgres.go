package dataaccess

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// PostgresAccess implements Access against the stats warehouse.
type PostgresAccess struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds warehouse connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresAccess opens a warehouse connection and verifies it.
func NewPostgresAccess(cfg *PostgresConfig) (*PostgresAccess, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	cfg.Logger.Info("warehouse-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresAccess{db: db, logger: cfg.Logger}, nil
}

// NewPostgresAccessFromDB wraps an existing handle; used by tests and by
// callers that share a pool with the ledger.
func NewPostgresAccessFromDB(db *sql.DB, logger *zap.Logger) *PostgresAccess {
	return &PostgresAccess{db: db, logger: logger}
}

// ResolveEntity resolves a team or player by name, preferring exact matches.
func (p *PostgresAccess) ResolveEntity(ctx context.Context, name string) (*Entity, error) {
	query := `
		SELECT id, name, kind
		FROM entities
		WHERE LOWER(name) = LOWER($1) OR LOWER(name) LIKE LOWER($2)
		ORDER BY (LOWER(name) = LOWER($1)) DESC, name
		LIMIT 1
	`

	var e Entity
	err := p.db.QueryRowContext(ctx, query, name, "%"+name+"%").Scan(&e.ID, &e.Name, &e.Kind)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve entity %q: %w", name, err)
	}

	return &e, nil
}

// FetchAggregates returns one timeframe window of per-game averages.
func (p *PostgresAccess) FetchAggregates(ctx context.Context, entityID string, window Window) (*types.WindowAggregates, error) {
	query := `
		SELECT games, points_for, points_against, wins, losses, overs, unders, ats_wins, ats_losses
		FROM window_aggregates
		WHERE entity_id = $1 AND window = $2
	`

	var w types.WindowAggregates
	err := p.db.QueryRowContext(ctx, query, entityID, string(window)).Scan(
		&w.Games, &w.PointsFor, &w.PointsAgainst, &w.Wins, &w.Losses,
		&w.Overs, &w.Unders, &w.ATSWins, &w.ATSLosses,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch aggregates %s/%s: %w", entityID, window, err)
	}

	return &w, nil
}

// FetchHeadToHead returns the most recent meetings between two entities.
func (p *PostgresAccess) FetchHeadToHead(ctx context.Context, entityA, entityB string, limit int) ([]types.GameResult, error) {
	query := `
		SELECT played_at, home_score, away_score
		FROM games
		WHERE (home_id = $1 AND away_id = $2) OR (home_id = $2 AND away_id = $1)
		ORDER BY played_at DESC
		LIMIT $3
	`

	rows, err := p.db.QueryContext(ctx, query, entityA, entityB, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch head-to-head %s vs %s: %w", entityA, entityB, err)
	}
	defer rows.Close()

	var results []types.GameResult
	for rows.Next() {
		var g types.GameResult
		err = rows.Scan(&g.PlayedAt, &g.HomeScore, &g.AwayScore)
		if err != nil {
			return nil, fmt.Errorf("scan head-to-head row: %w", err)
		}
		results = append(results, g)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate head-to-head rows: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results, nil
}

// FetchRestAndDensity derives rest days and trailing game counts from the
// schedule as of the given date.
func (p *PostgresAccess) FetchRestAndDensity(ctx context.Context, entityID string, date time.Time) (*types.RestProfile, error) {
	query := `
		SELECT
			COALESCE(DATE_PART('day', $2::timestamp - MAX(played_at)), -1),
			COUNT(*) FILTER (WHERE played_at >= $2::timestamp - INTERVAL '7 days'),
			COUNT(*) FILTER (WHERE played_at >= $2::timestamp - INTERVAL '14 days')
		FROM games
		WHERE (home_id = $1 OR away_id = $1) AND played_at < $2
	`

	var daysRest float64
	var r types.RestProfile
	err := p.db.QueryRowContext(ctx, query, entityID, date).Scan(&daysRest, &r.GamesLast7, &r.GamesLast14)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch rest profile %s: %w", entityID, err)
	}
	if daysRest < 0 {
		return nil, ErrNotFound
	}

	r.DaysRest = int(daysRest)
	return &r, nil
}

// FetchVenueSplits returns scoring splits for home or away games.
func (p *PostgresAccess) FetchVenueSplits(ctx context.Context, entityID string, home bool) (*types.VenueSplits, error) {
	query := `
		SELECT venue_avg_for, overall_avg_for, venue_games
		FROM venue_splits
		WHERE entity_id = $1 AND is_home = $2
	`

	var v types.VenueSplits
	err := p.db.QueryRowContext(ctx, query, entityID, home).Scan(&v.VenueAvgFor, &v.OverallAvgFor, &v.VenueGames)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch venue splits %s: %w", entityID, err)
	}

	return &v, nil
}

// FetchMarketOdds returns the latest stored prices for one event market.
func (p *PostgresAccess) FetchMarketOdds(ctx context.Context, eventID string, betType types.BetType) (*types.MarketSnapshot, error) {
	query := `
		SELECT line, over_price, under_price, home_price, away_price, fetched_at
		FROM market_odds
		WHERE event_id = $1 AND bet_type = $2
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	var m types.MarketSnapshot
	err := p.db.QueryRowContext(ctx, query, eventID, string(betType)).Scan(
		&m.Line, &m.OverPrice, &m.UnderPrice, &m.HomePrice, &m.AwayPrice, &m.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch market odds %s/%s: %w", eventID, betType, err)
	}

	m.HasLine = true
	return &m, nil
}

// FetchRealizedResult returns the final value for a settled event.
func (p *PostgresAccess) FetchRealizedResult(ctx context.Context, eventID string, betType types.BetType, stat string) (float64, error) {
	if betType == types.BetTypePlayerProp {
		query := `
			SELECT value
			FROM player_results
			WHERE event_id = $1 AND stat = $2 AND final = TRUE
		`
		var value float64
		err := p.db.QueryRowContext(ctx, query, eventID, stat).Scan(&value)
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("fetch player result %s/%s: %w", eventID, stat, err)
		}
		return value, nil
	}

	query := `
		SELECT home_score, away_score
		FROM results
		WHERE event_id = $1 AND final = TRUE
	`
	var home, away float64
	err := p.db.QueryRowContext(ctx, query, eventID).Scan(&home, &away)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetch result %s: %w", eventID, err)
	}

	if betType == types.BetTypeSpread {
		return home - away, nil
	}
	return home + away, nil
}

// LeagueAveragePoints returns the current league scoring average.
func (p *PostgresAccess) LeagueAveragePoints(ctx context.Context) (float64, error) {
	var avg float64
	err := p.db.QueryRowContext(ctx, `SELECT avg_points FROM league_averages ORDER BY as_of DESC LIMIT 1`).Scan(&avg)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetch league average: %w", err)
	}
	return avg, nil
}

// Close closes the warehouse connection.
func (p *PostgresAccess) Close() error {
	p.logger.Info("closing-warehouse-access")
	return p.db.Close()
}
