package types

import "time"

// BetType identifies the market a wager is placed on.
type BetType string

const (
	BetTypeTotal      BetType = "total"
	BetTypeSpread     BetType = "spread"
	BetTypePlayerProp BetType = "player_prop"
)

// Selection identifies which side of a market a wager backs.
type Selection string

const (
	SelectionOver  Selection = "OVER"
	SelectionUnder Selection = "UNDER"
	SelectionHome  Selection = "HOME"
	SelectionAway  Selection = "AWAY"
)

// DataQuality flags how complete the context behind a result is.
type DataQuality string

const (
	QualityFresh       DataQuality = "FRESH"
	QualityPartial     DataQuality = "PARTIAL"
	QualityUnavailable DataQuality = "UNAVAILABLE"
)

// EvaluationRequest is the structured request surface for one wager evaluation.
// Team markets name two sides; player props name a player and a stat instead.
type EvaluationRequest struct {
	BetType  BetType  `json:"bet_type"`
	HomeTeam string   `json:"home_team,omitempty"`
	AwayTeam string   `json:"away_team,omitempty"`
	Player   string   `json:"player,omitempty"`
	Stat     string   `json:"stat,omitempty"`
	Line     *float64 `json:"line,omitempty"`
	// Depth hints how much simulation work to spend: "quick", "standard" or "deep".
	Depth string `json:"depth,omitempty"`
}

// WindowAggregates holds per-game averages over one timeframe window.
// A nil window means the warehouse had no rows for it.
type WindowAggregates struct {
	Games         int     `json:"games"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Overs         int     `json:"overs"`
	Unders        int     `json:"unders"`
	ATSWins       int     `json:"ats_wins"`
	ATSLosses     int     `json:"ats_losses"`
}

// RestProfile captures rest and schedule density ahead of the event.
type RestProfile struct {
	DaysRest    int `json:"days_rest"`
	GamesLast7  int `json:"games_last_7"`
	GamesLast14 int `json:"games_last_14"`
}

// VenueSplits compares a side's scoring at the event venue type against its
// overall average.
type VenueSplits struct {
	VenueAvgFor   float64 `json:"venue_avg_for"`
	OverallAvgFor float64 `json:"overall_avg_for"`
	VenueGames    int     `json:"venue_games"`
}

// GameResult is one historical meeting used for head-to-head context.
type GameResult struct {
	PlayedAt  time.Time `json:"played_at"`
	HomeScore float64   `json:"home_score"`
	AwayScore float64   `json:"away_score"`
}

// MarketSnapshot holds the current prices for the requested market.
// Prices are decimal odds; the line is the posted handicap or total.
type MarketSnapshot struct {
	Line       float64   `json:"line"`
	HasLine    bool      `json:"has_line"`
	OverPrice  float64   `json:"over_price,omitempty"`
	UnderPrice float64   `json:"under_price,omitempty"`
	HomePrice  float64   `json:"home_price,omitempty"`
	AwayPrice  float64   `json:"away_price,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// SideContext is one side's full statistical picture: multi-window
// aggregates, rest, and venue splits.
type SideContext struct {
	EntityID string            `json:"entity_id"`
	Name     string            `json:"name"`
	IsHome   bool              `json:"is_home"`
	Season   *WindowAggregates `json:"season,omitempty"`
	Last15   *WindowAggregates `json:"last_15,omitempty"`
	Last10   *WindowAggregates `json:"last_10,omitempty"`
	Last5    *WindowAggregates `json:"last_5,omitempty"`
}

// PropContext holds the subject of a player-prop evaluation.
type PropContext struct {
	PlayerID   string            `json:"player_id"`
	PlayerName string            `json:"player_name"`
	Stat       string            `json:"stat"`
	Season     *WindowAggregates `json:"season,omitempty"`
	Last15     *WindowAggregates `json:"last_15,omitempty"`
	Last10     *WindowAggregates `json:"last_10,omitempty"`
	Last5      *WindowAggregates `json:"last_5,omitempty"`
}

// Context is the immutable snapshot assembled for one evaluation request.
// It is built once by the data stage and never mutated afterwards; degraded
// fetches are recorded in Missing rather than failing the build.
type Context struct {
	RequestID       string       `json:"request_id"`
	BetType         BetType      `json:"bet_type"`
	EventID         string       `json:"event_id"`
	Home            SideContext  `json:"home"`
	Away            SideContext  `json:"away"`
	Prop            *PropContext `json:"prop,omitempty"`
	HomeRest        RestProfile  `json:"home_rest"`
	AwayRest        RestProfile  `json:"away_rest"`
	HomeVenue       VenueSplits  `json:"home_venue"`
	AwayVenue       VenueSplits  `json:"away_venue"`
	HeadToHead      []GameResult `json:"head_to_head,omitempty"`
	Market          MarketSnapshot `json:"market"`
	LeagueAvgPoints float64      `json:"league_avg_points"`
	FetchedAt       time.Time    `json:"fetched_at"`
	Quality         DataQuality  `json:"quality"`
	Missing         []string     `json:"missing,omitempty"`
}

// WindowCount reports how many timeframe windows a side actually has.
func (s *SideContext) WindowCount() int {
	n := 0
	for _, w := range []*WindowAggregates{s.Season, s.Last15, s.Last10, s.Last5} {
		if w != nil {
			n++
		}
	}
	return n
}

// SampleGames returns the largest game count across present windows.
func (s *SideContext) SampleGames() int {
	max := 0
	for _, w := range []*WindowAggregates{s.Season, s.Last15, s.Last10, s.Last5} {
		if w != nil && w.Games > max {
			max = w.Games
		}
	}
	return max
}
