package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10_000, cfg.SimDraws)
	assert.InDelta(t, 0.22, cfg.SimCorrelation, 1e-12)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.InDelta(t, 0.25, cfg.KellyMultiplier, 1e-12)
	assert.InDelta(t, 0.05, cfg.KellyCap, 1e-12)
	assert.Equal(t, 5, cfg.DebateTopK)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SIM_DRAWS", "2500")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("SIM_SKEW_MODE", "true")
	t.Setenv("PIPELINE_MAX_RETRIES", "5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 2500, cfg.SimDraws)
	assert.Equal(t, int64(42), cfg.SimSeed)
	assert.True(t, cfg.SimSkewMode)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestLoadFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SIM_DRAWS", "not-a-number")
	t.Setenv("SETTLEMENT_INTERVAL", "garbage")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 10_000, cfg.SimDraws)
	assert.Equal(t, "15m0s", cfg.SettlementInterval.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero-draws",
			mutate:  func(c *Config) { c.SimDraws = 0 },
			wantErr: "SIM_DRAWS",
		},
		{
			name:    "correlation-out-of-range",
			mutate:  func(c *Config) { c.SimCorrelation = 1.5 },
			wantErr: "SIM_CORRELATION",
		},
		{
			name:    "kelly-multiplier-zero",
			mutate:  func(c *Config) { c.KellyMultiplier = 0 },
			wantErr: "EDGE_KELLY_MULTIPLIER",
		},
		{
			name:    "negative-retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: "PIPELINE_MAX_RETRIES",
		},
		{
			name:    "tier-thresholds-out-of-order",
			mutate:  func(c *Config) { c.EVStrongThreshold = 0.01 },
			wantErr: "EV tier thresholds",
		},
		{
			name: "zero-window-weights",
			mutate: func(c *Config) {
				c.WeightSeason = 0
				c.WeightLast15 = 0
				c.WeightLast10 = 0
				c.WeightLast5 = 0
			},
			wantErr: "window weights",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromEnv()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
