package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sharpline/sharpline/internal/app"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Run one settlement pass over pending wagers",
	Long: `Fetches final results for pending wagers, grades each one as WIN, LOSS or
PUSH, and folds the outcomes into the calibration buckets. Wagers whose
events have not finished yet are left pending for the next pass.`,
	RunE: runSettle,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(settleCmd)
}

func runSettle(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	settled, err := application.Settler().RunPass(ctx)
	if err != nil {
		return fmt.Errorf("settlement pass: %w", err)
	}

	fmt.Printf("Settled %d wager(s)\n", settled)

	return nil
}
