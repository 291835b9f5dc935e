package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// The model constants (correlation, skew, rest penalties, bias correction,
// learning thresholds) are empirically tuned from backtests, not principled
// derivations. They live here as configuration so they can be revalidated
// without a code change.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Warehouse / ledger database
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Odds feed
	OddsFeedURL            string
	OddsFeedDialTimeout    time.Duration
	OddsFeedPongTimeout    time.Duration
	OddsFeedPingInterval   time.Duration
	OddsFeedReconnectDelay time.Duration
	OddsFeedReconnectMax   time.Duration
	OddsFeedBackoffMult    float64

	// Context cache
	CacheTTL         time.Duration
	CacheNumCounters int64
	CacheMaxCost     int64

	// Orchestrator
	MaxRetries     int
	MinSampleGames int

	// Projection
	WeightSeason     float64
	WeightLast15     float64
	WeightLast10     float64
	WeightLast5      float64
	RestPenaltyB2B   float64
	RestPenalty1Day  float64
	RestBonusLong    float64
	DensityPenalty7  float64
	DensityPenalty14 float64
	H2HWeight        float64
	TendencyClamp    float64
	BiasCorrection   float64

	// Simulation
	SimDraws        int
	SimCorrelation  float64
	SimSkewness     float64
	SimSkewMode     bool
	SimOTProb       float64
	SimOTPointsMean float64
	SimOTPointsStd  float64
	SimScoreFloor   float64
	SimSeed         int64

	// Edge / sizing
	KellyMultiplier   float64
	KellyCap          float64
	Bankroll          float64
	EVLeanThreshold   float64
	EVBetThreshold    float64
	EVStrongThreshold float64

	// Bankroll guard
	GuardCheckInterval   time.Duration
	GuardStakeMultiplier float64
	GuardMinBankroll     float64
	GuardHysteresis      float64

	// Debate
	DebateTopK            int
	DebateWinnerThreshold float64

	// Settlement and learning schedulers
	SettlementInterval    time.Duration
	SettlementBatch       int
	LearningInterval      time.Duration
	LearningMinSamples    int
	LearningEdgeThreshold float64
	LearningLossRate      float64
	LearningVersion       string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Database defaults
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "sharpline"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "sharpline123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "sharpline"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Odds feed defaults
		OddsFeedURL:            os.Getenv("ODDS_FEED_WS_URL"),
		OddsFeedDialTimeout:    getDurationOrDefault("ODDS_FEED_DIAL_TIMEOUT", 10*time.Second),
		OddsFeedPongTimeout:    getDurationOrDefault("ODDS_FEED_PONG_TIMEOUT", 15*time.Second),
		OddsFeedPingInterval:   getDurationOrDefault("ODDS_FEED_PING_INTERVAL", 10*time.Second),
		OddsFeedReconnectDelay: getDurationOrDefault("ODDS_FEED_RECONNECT_INITIAL_DELAY", 1*time.Second),
		OddsFeedReconnectMax:   getDurationOrDefault("ODDS_FEED_RECONNECT_MAX_DELAY", 30*time.Second),
		OddsFeedBackoffMult:    getFloat64OrDefault("ODDS_FEED_BACKOFF_MULTIPLIER", 2.0),

		// Cache defaults
		CacheTTL:         getDurationOrDefault("CACHE_TTL", 5*time.Minute),
		CacheNumCounters: getInt64OrDefault("CACHE_NUM_COUNTERS", 100_000),
		CacheMaxCost:     getInt64OrDefault("CACHE_MAX_COST", 10_000),

		// Orchestrator defaults
		MaxRetries:     getIntOrDefault("PIPELINE_MAX_RETRIES", 2),
		MinSampleGames: getIntOrDefault("PIPELINE_MIN_SAMPLE_GAMES", 10),

		// Projection defaults. Window weights renormalize over present
		// windows, so a missing window drops out without retuning.
		WeightSeason:     getFloat64OrDefault("PROJ_WEIGHT_SEASON", 0.20),
		WeightLast15:     getFloat64OrDefault("PROJ_WEIGHT_LAST15", 0.25),
		WeightLast10:     getFloat64OrDefault("PROJ_WEIGHT_LAST10", 0.30),
		WeightLast5:      getFloat64OrDefault("PROJ_WEIGHT_LAST5", 0.25),
		RestPenaltyB2B:   getFloat64OrDefault("PROJ_REST_PENALTY_B2B", -2.5),
		RestPenalty1Day:  getFloat64OrDefault("PROJ_REST_PENALTY_1DAY", -1.0),
		RestBonusLong:    getFloat64OrDefault("PROJ_REST_BONUS_3PLUS", 1.0),
		DensityPenalty7:  getFloat64OrDefault("PROJ_DENSITY_PENALTY_7D", -0.6),
		DensityPenalty14: getFloat64OrDefault("PROJ_DENSITY_PENALTY_14D", -0.25),
		H2HWeight:        getFloat64OrDefault("PROJ_H2H_WEIGHT", 0.15),
		TendencyClamp:    getFloat64OrDefault("PROJ_TENDENCY_CLAMP", 2.0),
		BiasCorrection:   getFloat64OrDefault("PROJ_BIAS_CORRECTION", 1.4),

		// Simulation defaults. Correlation 0.22 is the backtested same-game
		// score correlation, not the naive 0.5 assumption.
		SimDraws:        getIntOrDefault("SIM_DRAWS", 10_000),
		SimCorrelation:  getFloat64OrDefault("SIM_CORRELATION", 0.22),
		SimSkewness:     getFloat64OrDefault("SIM_SKEWNESS", 0.35),
		SimSkewMode:     getBoolOrDefault("SIM_SKEW_MODE", false),
		SimOTProb:       getFloat64OrDefault("SIM_OT_PROB", 0.063),
		SimOTPointsMean: getFloat64OrDefault("SIM_OT_POINTS_MEAN", 9.5),
		SimOTPointsStd:  getFloat64OrDefault("SIM_OT_POINTS_STD", 3.0),
		SimScoreFloor:   getFloat64OrDefault("SIM_SCORE_FLOOR", 60.0),
		SimSeed:         getInt64OrDefault("SIM_SEED", 0),

		// Edge defaults
		KellyMultiplier:   getFloat64OrDefault("EDGE_KELLY_MULTIPLIER", 0.25),
		KellyCap:          getFloat64OrDefault("EDGE_KELLY_CAP", 0.05),
		Bankroll:          getFloat64OrDefault("EDGE_BANKROLL", 1000.0),
		EVLeanThreshold:   getFloat64OrDefault("EDGE_EV_LEAN", 0.0),
		EVBetThreshold:    getFloat64OrDefault("EDGE_EV_BET", 0.03),
		EVStrongThreshold: getFloat64OrDefault("EDGE_EV_STRONG", 0.06),

		// Bankroll guard defaults
		GuardCheckInterval:   getDurationOrDefault("GUARD_CHECK_INTERVAL", time.Minute),
		GuardStakeMultiplier: getFloat64OrDefault("GUARD_STAKE_MULTIPLIER", 5.0),
		GuardMinBankroll:     getFloat64OrDefault("GUARD_MIN_BANKROLL", 50.0),
		GuardHysteresis:      getFloat64OrDefault("GUARD_HYSTERESIS", 1.2),

		// Debate defaults
		DebateTopK:            getIntOrDefault("DEBATE_TOP_K", 5),
		DebateWinnerThreshold: getFloat64OrDefault("DEBATE_WINNER_THRESHOLD", 0.1),

		// Scheduler defaults
		SettlementInterval:    getDurationOrDefault("SETTLEMENT_INTERVAL", 15*time.Minute),
		SettlementBatch:       getIntOrDefault("SETTLEMENT_BATCH", 100),
		LearningInterval:      getDurationOrDefault("LEARNING_INTERVAL", 6*time.Hour),
		LearningMinSamples:    getIntOrDefault("LEARNING_MIN_SAMPLES", 5),
		LearningEdgeThreshold: getFloat64OrDefault("LEARNING_EDGE_THRESHOLD", 0.08),
		LearningLossRate:      getFloat64OrDefault("LEARNING_LOSS_RATE", 0.5),
		LearningVersion:       getEnvOrDefault("LEARNING_THRESHOLD_VERSION", "v1"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.SimDraws <= 0 {
		return fmt.Errorf("SIM_DRAWS must be positive, got %d", c.SimDraws)
	}

	if c.SimCorrelation < -1.0 || c.SimCorrelation > 1.0 {
		return fmt.Errorf("SIM_CORRELATION must be in [-1, 1], got %f", c.SimCorrelation)
	}

	if c.SimOTProb < 0 || c.SimOTProb > 1.0 {
		return fmt.Errorf("SIM_OT_PROB must be in [0, 1], got %f", c.SimOTProb)
	}

	if c.KellyMultiplier <= 0 || c.KellyMultiplier > 1.0 {
		return fmt.Errorf("EDGE_KELLY_MULTIPLIER must be in (0, 1], got %f", c.KellyMultiplier)
	}

	if c.KellyCap <= 0 || c.KellyCap > 1.0 {
		return fmt.Errorf("EDGE_KELLY_CAP must be in (0, 1], got %f", c.KellyCap)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("PIPELINE_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}

	if c.EVBetThreshold < c.EVLeanThreshold || c.EVStrongThreshold < c.EVBetThreshold {
		return fmt.Errorf("EV tier thresholds must be non-decreasing: lean=%f bet=%f strong=%f",
			c.EVLeanThreshold, c.EVBetThreshold, c.EVStrongThreshold)
	}

	weightSum := c.WeightSeason + c.WeightLast15 + c.WeightLast10 + c.WeightLast5
	if weightSum <= 0 {
		return fmt.Errorf("projection window weights must sum to a positive value, got %f", weightSum)
	}

	if c.GuardHysteresis < 1.0 {
		return fmt.Errorf("GUARD_HYSTERESIS must be >= 1.0, got %f", c.GuardHysteresis)
	}

	if c.DebateTopK <= 0 {
		return fmt.Errorf("DEBATE_TOP_K must be positive, got %d", c.DebateTopK)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
