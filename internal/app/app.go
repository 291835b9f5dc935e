package app

import (
	"context"
	"sync"

	"github.com/sharpline/sharpline/internal/circuitbreaker"
	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/internal/ledger"
	"github.com/sharpline/sharpline/internal/oddsfeed"
	"github.com/sharpline/sharpline/internal/pipeline"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/sharpline/sharpline/pkg/healthprobe"
	"github.com/sharpline/sharpline/pkg/httpserver"
	"go.uber.org/zap"
)

// App owns every long-lived component of the serve mode: the evaluation
// pipeline behind the HTTP API, the settlement and learning schedulers, and
// the odds feed mirror.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	access        dataaccess.Access
	store         ledger.Store
	guard         *circuitbreaker.BankrollGuard
	orchestrator  *pipeline.Orchestrator
	settler       *ledger.Settler
	analyzer      *ledger.Analyzer
	oddsFeed      *oddsfeed.Client
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// DryRun evaluates without writing wagers to the ledger.
	DryRun bool
	// DisableSchedulers turns off the settlement and learning loops; used
	// when another instance owns them.
	DisableSchedulers bool
}
