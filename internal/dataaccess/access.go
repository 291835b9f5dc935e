package dataaccess

import (
	"context"
	"errors"
	"time"

	"github.com/sharpline/sharpline/pkg/types"
)

// ErrNotFound is the explicit "no record" answer. Callers treat it as a
// missing-artifact signal, never as a fault.
var ErrNotFound = errors.New("record not found")

// Window names one aggregate timeframe in the warehouse.
type Window string

const (
	WindowSeason Window = "season"
	WindowLast15 Window = "last_15"
	WindowLast10 Window = "last_10"
	WindowLast5  Window = "last_5"
)

// Entity is a resolved team or player.
type Entity struct {
	ID   string
	Name string
	Kind string // "team" or "player"
}

// Access is the read-only boundary to the stats warehouse and odds source.
// Every call is idempotent and side-effect-free; implementations return
// either a populated record or ErrNotFound, and wrap any transport fault in
// a normal error rather than panicking.
type Access interface {
	// ResolveEntity resolves a team or player by (possibly partial) name.
	ResolveEntity(ctx context.Context, name string) (*Entity, error)

	// FetchAggregates returns the per-game averages for one timeframe window.
	FetchAggregates(ctx context.Context, entityID string, window Window) (*types.WindowAggregates, error)

	// FetchHeadToHead returns up to limit most recent meetings, newest first.
	FetchHeadToHead(ctx context.Context, entityA, entityB string, limit int) ([]types.GameResult, error)

	// FetchRestAndDensity returns rest days and trailing schedule density as
	// of the given date.
	FetchRestAndDensity(ctx context.Context, entityID string, date time.Time) (*types.RestProfile, error)

	// FetchVenueSplits returns venue-specific scoring splits for one side.
	FetchVenueSplits(ctx context.Context, entityID string, home bool) (*types.VenueSplits, error)

	// FetchMarketOdds returns the current prices and line for the event.
	FetchMarketOdds(ctx context.Context, eventID string, betType types.BetType) (*types.MarketSnapshot, error)

	// FetchRealizedResult returns the settled value for a finished event:
	// the combined total, the home margin, or the player's stat value,
	// depending on the bet type. Returns ErrNotFound until the event is
	// final.
	FetchRealizedResult(ctx context.Context, eventID string, betType types.BetType, stat string) (float64, error)

	// LeagueAveragePoints returns the league-wide scoring average used for
	// opponent-strength normalization.
	LeagueAveragePoints(ctx context.Context) (float64, error)

	// Close releases the underlying handles.
	Close() error
}
