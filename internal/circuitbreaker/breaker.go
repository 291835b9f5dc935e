package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// checkBatch bounds the settled-wager scan per bankroll check. Drawdown deep
// enough to trip the guard shows up inside the most recent settlements.
const checkBatch = 1000

// ProfitSource reads settled wagers to derive realized bankroll movement.
// Both ledger.Store and test fakes implement this interface.
type ProfitSource interface {
	SettledWagers(ctx context.Context, limit int) ([]*types.Wager, error)
}

// BankrollGuard monitors realized profit in the ledger and controls wager
// persistence. It dynamically calculates a drawdown threshold from recent
// stake sizes and uses hysteresis to prevent rapid state changes: a bankroll
// that dips below the disable threshold suspends new wagers until it climbs
// back above the higher enable threshold.
type BankrollGuard struct {
	enabled atomic.Bool // Atomic for lock-free reads

	// Configuration
	checkInterval    time.Duration
	source           ProfitSource
	logger           *zap.Logger
	startingBankroll float64
	stakeMultiplier  float64 // Multiplier for avg stake size
	minBankroll      float64 // Absolute minimum bankroll
	hysteresisRatio  float64 // Re-enable at ratio * disable threshold

	// Protected by mutex
	mu               sync.RWMutex
	lastBankroll     float64   // Last computed bankroll (units)
	lastCheck        time.Time // When we last checked
	recentStakes     []float64 // Rolling window of stake sizes
	disableThreshold float64   // Current disable threshold
	enableThreshold  float64   // Current enable threshold
}

// Config holds bankroll guard configuration.
type Config struct {
	CheckInterval    time.Duration
	StartingBankroll float64
	StakeMultiplier  float64
	MinBankroll      float64
	HysteresisRatio  float64
	Source           ProfitSource
	Logger           *zap.Logger
}

// Status holds current guard status for debugging.
type Status struct {
	Enabled          bool
	LastBankroll     float64
	LastCheck        time.Time
	DisableThreshold float64
	EnableThreshold  float64
	AvgStake         float64
	RecentStakeCount int
}

// New creates a new bankroll guard with the given configuration.
func New(cfg *Config) (guard *BankrollGuard, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("profit source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.StartingBankroll <= 0 {
		return nil, fmt.Errorf("starting bankroll must be positive")
	}
	if cfg.StakeMultiplier <= 0 {
		return nil, fmt.Errorf("stake multiplier must be positive")
	}
	if cfg.MinBankroll <= 0 {
		return nil, fmt.Errorf("min bankroll must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	guard = &BankrollGuard{
		checkInterval:    cfg.CheckInterval,
		source:           cfg.Source,
		logger:           cfg.Logger,
		startingBankroll: cfg.StartingBankroll,
		stakeMultiplier:  cfg.StakeMultiplier,
		minBankroll:      cfg.MinBankroll,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentStakes:     make([]float64, 0, 20),
		disableThreshold: cfg.MinBankroll, // Start with minimum
		enableThreshold:  cfg.MinBankroll * cfg.HysteresisRatio,
	}

	// Start enabled by default
	guard.enabled.Store(true)

	// Initialize metrics
	GuardEnabled.Set(1)
	GuardDisableThreshold.Set(guard.disableThreshold)
	GuardEnableThreshold.Set(guard.enableThreshold)
	GuardAvgStake.Set(0)

	return guard, nil
}

// IsEnabled returns true if new wagers may be persisted.
// This is lock-free and safe to call from hot paths.
func (g *BankrollGuard) IsEnabled() (enabled bool) {
	return g.enabled.Load()
}

// RecordStake adds a stake to the rolling window and recalculates thresholds.
// Call this after a wager is persisted.
func (g *BankrollGuard) RecordStake(stake float64) {
	if stake <= 0 {
		g.logger.Warn("invalid-stake-size",
			zap.Float64("stake", stake))
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Add to rolling window (keep last 20 stakes)
	g.recentStakes = append(g.recentStakes, stake)
	if len(g.recentStakes) > 20 {
		g.recentStakes = g.recentStakes[1:]
	}

	// Calculate average
	sum := 0.0
	for _, s := range g.recentStakes {
		sum += s
	}
	avgStake := sum / float64(len(g.recentStakes))

	// Calculate thresholds
	g.disableThreshold = math.Max(avgStake*g.stakeMultiplier, g.minBankroll)
	g.enableThreshold = g.disableThreshold * g.hysteresisRatio

	// Update metrics
	GuardAvgStake.Set(avgStake)
	GuardDisableThreshold.Set(g.disableThreshold)
	GuardEnableThreshold.Set(g.enableThreshold)

	g.logger.Debug("thresholds-updated",
		zap.Float64("avg-stake", avgStake),
		zap.Int("stake-count", len(g.recentStakes)),
		zap.Float64("disable-threshold", g.disableThreshold),
		zap.Float64("enable-threshold", g.enableThreshold))
}

// CheckBankroll recomputes the bankroll from recent settlements and updates
// the enabled state based on thresholds.
func (g *BankrollGuard) CheckBankroll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		GuardCheckDuration.Observe(duration)
	}()

	settled, err := g.source.SettledWagers(ctx, checkBatch)
	if err != nil {
		g.logger.Error("failed-to-check-bankroll", zap.Error(err))
		return fmt.Errorf("settled wagers: %w", err)
	}

	// Profit is recorded per unit staked, so realized movement is
	// profit * stake summed over the window.
	bankroll := g.startingBankroll
	for _, w := range settled {
		bankroll += w.Profit * w.Stake
	}

	// Get current thresholds and state
	g.mu.RLock()
	disableThreshold := g.disableThreshold
	enableThreshold := g.enableThreshold
	g.mu.RUnlock()

	currentlyEnabled := g.enabled.Load()

	// Update last bankroll and check time
	g.mu.Lock()
	g.lastBankroll = bankroll
	g.lastCheck = time.Now()
	g.mu.Unlock()

	// Update bankroll metric
	GuardBankroll.Set(bankroll)

	// State transition logic with hysteresis
	shouldDisable := currentlyEnabled && bankroll < disableThreshold
	shouldEnable := !currentlyEnabled && bankroll >= enableThreshold

	if shouldDisable {
		g.enabled.Store(false)
		GuardEnabled.Set(0)
		GuardStateChanges.Inc()

		g.logger.Warn("bankroll-guard-disabled",
			zap.Float64("bankroll", bankroll),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	} else if shouldEnable {
		g.enabled.Store(true)
		GuardEnabled.Set(1)
		GuardStateChanges.Inc()

		g.logger.Info("bankroll-guard-enabled",
			zap.Float64("bankroll", bankroll),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	} else {
		// No state change, just log current status
		g.logger.Debug("bankroll-checked",
			zap.Float64("bankroll", bankroll),
			zap.Bool("enabled", currentlyEnabled),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	}

	return nil
}

// Start begins the background monitoring loop that periodically recomputes
// the bankroll. This runs until the context is cancelled.
func (g *BankrollGuard) Start(ctx context.Context) {
	g.logger.Info("bankroll-guard-started",
		zap.Duration("check-interval", g.checkInterval),
		zap.Float64("starting-bankroll", g.startingBankroll),
		zap.Float64("stake-multiplier", g.stakeMultiplier),
		zap.Float64("min-bankroll", g.minBankroll),
		zap.Float64("hysteresis-ratio", g.hysteresisRatio))

	// Check bankroll immediately on startup
	if err := g.CheckBankroll(ctx); err != nil {
		g.logger.Error("initial-bankroll-check-failed", zap.Error(err))
	}

	// Start background monitoring
	go g.monitorLoop(ctx)
}

// monitorLoop is the background goroutine that periodically checks bankroll.
func (g *BankrollGuard) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(g.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("bankroll-guard-stopped")
			return
		case <-ticker.C:
			if err := g.CheckBankroll(ctx); err != nil {
				// Log error but continue monitoring
				g.logger.Error("bankroll-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns current guard status for debugging.
func (g *BankrollGuard) GetStatus() (status Status) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sum := 0.0
	for _, s := range g.recentStakes {
		sum += s
	}
	avgStake := 0.0
	if len(g.recentStakes) > 0 {
		avgStake = sum / float64(len(g.recentStakes))
	}

	status = Status{
		Enabled:          g.enabled.Load(),
		LastBankroll:     g.lastBankroll,
		LastCheck:        g.lastCheck,
		DisableThreshold: g.disableThreshold,
		EnableThreshold:  g.enableThreshold,
		AvgStake:         avgStake,
		RecentStakeCount: len(g.recentStakes),
	}

	return status
}
