package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Int("sim-draws", a.cfg.SimDraws),
		zap.String("learning-version", a.cfg.LearningVersion),
		zap.String("log-level", a.cfg.LogLevel))

	// Start all components
	err := a.startComponents()
	if err != nil {
		return err
	}

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("odds-feed-url", a.cfg.OddsFeedURL))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// The warehouse and ledger connections were verified with a ping during
	// setup, so they are ready as soon as the process is up.
	a.healthChecker.SetComponent("warehouse", true)
	a.healthChecker.SetComponent("ledger", true)

	err := a.startOddsFeed()
	if err != nil {
		return fmt.Errorf("start odds feed: %w", err)
	}

	if a.guard != nil {
		a.guard.Start(a.ctx)
	}

	a.startSchedulers()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) startOddsFeed() error {
	if a.oddsFeed == nil {
		return nil
	}

	err := a.oddsFeed.Start()
	if err != nil {
		return err
	}
	a.healthChecker.SetComponent("odds-feed", true)
	return nil
}

func (a *App) startSchedulers() {
	if a.settler != nil {
		a.wg.Add(1)
		go a.runSettler()
	}
	if a.analyzer != nil {
		a.wg.Add(1)
		go a.runAnalyzer()
	}
}

func (a *App) runSettler() {
	defer a.wg.Done()
	err := a.settler.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("settler-error", zap.Error(err))
	}
}

func (a *App) runAnalyzer() {
	defer a.wg.Done()
	err := a.analyzer.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("analyzer-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
