package dataaccess

import (
	"context"
	"fmt"
	"time"

	"github.com/sharpline/sharpline/pkg/cache"
	"github.com/sharpline/sharpline/pkg/types"
)

// CachedAccess fronts another Access with a TTL cache. Only the read shapes
// that repeat across evaluations are cached (aggregates, venue splits, odds,
// league average); realized results and rest profiles are date-sensitive and
// always pass through.
type CachedAccess struct {
	inner Access
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedAccess wraps an Access with the given cache and TTL.
func NewCachedAccess(inner Access, c cache.Cache, ttl time.Duration) *CachedAccess {
	return &CachedAccess{inner: inner, cache: c, ttl: ttl}
}

// ResolveEntity resolves through the cache; name resolution is stable.
func (c *CachedAccess) ResolveEntity(ctx context.Context, name string) (*Entity, error) {
	key := "entity:" + name
	if v, ok := c.cache.Get(key); ok {
		return v.(*Entity), nil
	}

	e, err := c.inner.ResolveEntity(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, e, c.ttl)
	return e, nil
}

// FetchAggregates caches per-window aggregates.
func (c *CachedAccess) FetchAggregates(ctx context.Context, entityID string, window Window) (*types.WindowAggregates, error) {
	key := fmt.Sprintf("aggregates:%s:%s", entityID, window)
	if v, ok := c.cache.Get(key); ok {
		return v.(*types.WindowAggregates), nil
	}

	w, err := c.inner.FetchAggregates(ctx, entityID, window)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, w, c.ttl)
	return w, nil
}

// FetchHeadToHead passes through; the limit makes the key space awkward and
// the query is cheap.
func (c *CachedAccess) FetchHeadToHead(ctx context.Context, entityA, entityB string, limit int) ([]types.GameResult, error) {
	return c.inner.FetchHeadToHead(ctx, entityA, entityB, limit)
}

// FetchRestAndDensity passes through; it is keyed to the request date.
func (c *CachedAccess) FetchRestAndDensity(ctx context.Context, entityID string, date time.Time) (*types.RestProfile, error) {
	return c.inner.FetchRestAndDensity(ctx, entityID, date)
}

// FetchVenueSplits caches venue splits.
func (c *CachedAccess) FetchVenueSplits(ctx context.Context, entityID string, home bool) (*types.VenueSplits, error) {
	key := fmt.Sprintf("venue:%s:%t", entityID, home)
	if v, ok := c.cache.Get(key); ok {
		return v.(*types.VenueSplits), nil
	}

	s, err := c.inner.FetchVenueSplits(ctx, entityID, home)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, s, c.ttl)
	return s, nil
}

// FetchMarketOdds prefers a live feed snapshot planted in the cache by the
// odds feed, falling back to the warehouse row.
func (c *CachedAccess) FetchMarketOdds(ctx context.Context, eventID string, betType types.BetType) (*types.MarketSnapshot, error) {
	key := OddsCacheKey(eventID, betType)
	if v, ok := c.cache.Get(key); ok {
		return v.(*types.MarketSnapshot), nil
	}

	m, err := c.inner.FetchMarketOdds(ctx, eventID, betType)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, m, c.ttl)
	return m, nil
}

// FetchRealizedResult always passes through; settlement must see finals.
func (c *CachedAccess) FetchRealizedResult(ctx context.Context, eventID string, betType types.BetType, stat string) (float64, error) {
	return c.inner.FetchRealizedResult(ctx, eventID, betType, stat)
}

// LeagueAveragePoints caches the league average.
func (c *CachedAccess) LeagueAveragePoints(ctx context.Context) (float64, error) {
	key := "league:avg_points"
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}

	avg, err := c.inner.LeagueAveragePoints(ctx)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, avg, c.ttl)
	return avg, nil
}

// Close closes the wrapped Access; the cache is owned by the caller.
func (c *CachedAccess) Close() error {
	return c.inner.Close()
}

// OddsCacheKey is the shared cache key for an event's market snapshot.
// The odds feed writes under the same key so live prices win over stale
// warehouse rows.
func OddsCacheKey(eventID string, betType types.BetType) string {
	return fmt.Sprintf("odds:%s:%s", eventID, betType)
}
