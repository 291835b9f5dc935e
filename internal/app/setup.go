package app

import (
	"context"
	"fmt"

	"github.com/sharpline/sharpline/internal/circuitbreaker"
	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/internal/ledger"
	"github.com/sharpline/sharpline/internal/oddsfeed"
	"github.com/sharpline/sharpline/internal/pipeline"
	"github.com/sharpline/sharpline/pkg/cache"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/sharpline/sharpline/pkg/healthprobe"
	"github.com/sharpline/sharpline/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	contextCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	access, err := setupAccess(cfg, logger, contextCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup warehouse access: %w", err)
	}

	store, err := setupStore(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger store: %w", err)
	}

	guard, err := setupGuard(cfg, logger, store, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup bankroll guard: %w", err)
	}

	orchestrator := setupOrchestrator(cfg, logger, access, store, guard, opts)

	settler, analyzer, err := setupSchedulers(cfg, logger, store, access, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup schedulers: %w", err)
	}

	feed := setupOddsFeed(cfg, logger, contextCache)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Evaluator:     orchestrator,
		Calibration:   store,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		access:        access,
		store:         store,
		guard:         guard,
		orchestrator:  orchestrator,
		settler:       settler,
		analyzer:      analyzer,
		oddsFeed:      feed,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: cfg.CacheNumCounters,
		MaxCost:     cfg.CacheMaxCost,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupAccess(cfg *config.Config, logger *zap.Logger, c cache.Cache) (dataaccess.Access, error) {
	pg, err := dataaccess.NewPostgresAccess(&dataaccess.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create warehouse access: %w", err)
	}

	return dataaccess.NewCachedAccess(pg, c, cfg.CacheTTL), nil
}

func setupStore(cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	store, err := ledger.NewPostgresStore(&ledger.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create ledger store: %w", err)
	}
	return store, nil
}

func setupGuard(cfg *config.Config, logger *zap.Logger, store ledger.Store, opts *Options) (*circuitbreaker.BankrollGuard, error) {
	if opts.DryRun {
		return nil, nil
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:    cfg.GuardCheckInterval,
		StartingBankroll: cfg.Bankroll,
		StakeMultiplier:  cfg.GuardStakeMultiplier,
		MinBankroll:      cfg.GuardMinBankroll,
		HysteresisRatio:  cfg.GuardHysteresis,
		Source:           store,
		Logger:           logger,
	})
}

func setupOrchestrator(cfg *config.Config, logger *zap.Logger, access dataaccess.Access, store ledger.Store, guard *circuitbreaker.BankrollGuard, opts *Options) *pipeline.Orchestrator {
	pipelineCfg := &pipeline.Config{
		Access: access,
		Cfg:    cfg,
		Logger: logger,
	}
	if !opts.DryRun {
		pipelineCfg.Store = store
		if guard != nil {
			pipelineCfg.Guard = guard
		}
	} else {
		logger.Info("wager-persistence-disabled",
			zap.String("reason", "dry-run mode, evaluations only"))
	}
	return pipeline.New(pipelineCfg)
}

func setupSchedulers(cfg *config.Config, logger *zap.Logger, store ledger.Store, access dataaccess.Access, opts *Options) (*ledger.Settler, *ledger.Analyzer, error) {
	if opts.DisableSchedulers {
		logger.Info("schedulers-disabled")
		return nil, nil, nil
	}

	settler := ledger.NewSettler(&ledger.SettlerConfig{
		Store:     store,
		Access:    access,
		Logger:    logger,
		Interval:  cfg.SettlementInterval,
		BatchSize: cfg.SettlementBatch,
	})

	analyzer, err := ledger.NewAnalyzer(&ledger.AnalyzerConfig{
		Store:            store,
		Logger:           logger,
		Interval:         cfg.LearningInterval,
		ThresholdVersion: cfg.LearningVersion,
		MinSamples:       cfg.LearningMinSamples,
		EdgeThreshold:    cfg.LearningEdgeThreshold,
		LossRate:         cfg.LearningLossRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create analyzer: %w", err)
	}

	return settler, analyzer, nil
}

func setupOddsFeed(cfg *config.Config, logger *zap.Logger, c cache.Cache) *oddsfeed.Client {
	if cfg.OddsFeedURL == "" {
		logger.Info("odds-feed-disabled",
			zap.String("reason", "ODDS_FEED_WS_URL not set, market odds come from the warehouse"))
		return nil
	}

	return oddsfeed.New(oddsfeed.Config{
		URL:                   cfg.OddsFeedURL,
		DialTimeout:           cfg.OddsFeedDialTimeout,
		PongTimeout:           cfg.OddsFeedPongTimeout,
		PingInterval:          cfg.OddsFeedPingInterval,
		ReconnectInitialDelay: cfg.OddsFeedReconnectDelay,
		ReconnectMaxDelay:     cfg.OddsFeedReconnectMax,
		ReconnectBackoffMult:  cfg.OddsFeedBackoffMult,
		SnapshotTTL:           cfg.CacheTTL,
		Cache:                 c,
		Logger:                logger,
	})
}

// Orchestrator exposes the pipeline for one-shot CLI commands.
func (a *App) Orchestrator() *pipeline.Orchestrator { return a.orchestrator }

// Store exposes the ledger for one-shot CLI commands.
func (a *App) Store() ledger.Store { return a.store }

// Settler exposes the settlement engine for one-shot CLI commands.
func (a *App) Settler() *ledger.Settler { return a.settler }

// Analyzer exposes the learning analyzer for one-shot CLI commands.
func (a *App) Analyzer() *ledger.Analyzer { return a.analyzer }
