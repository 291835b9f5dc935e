package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetComponent("warehouse", false)
	a.healthChecker.SetComponent("ledger", false)

	// Cancel context to signal all components
	a.cancel()

	// Shutdown components in dependency order
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Close odds feed
	err = a.shutdownOddsFeed()
	if err != nil {
		a.logger.Error("odds-feed-close-error", zap.Error(err))
	}

	// Close ledger store
	err = a.store.Close()
	if err != nil {
		a.logger.Error("ledger-close-error", zap.Error(err))
	}

	// Close warehouse access
	err = a.access.Close()
	if err != nil {
		a.logger.Error("warehouse-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownOddsFeed() error {
	if a.oddsFeed == nil {
		return nil
	}
	a.healthChecker.SetComponent("odds-feed", false)
	return a.oddsFeed.Close()
}
