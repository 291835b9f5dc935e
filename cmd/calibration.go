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
var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Print the calibration buckets",
	Long: `Prints the confidence calibration buckets: for each stated-confidence band,
how many wagers won, lost and pushed, and how far the realized win rate sits
from the stated confidence.`,
	RunE: runCalibration,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(calibrationCmd)
}

func runCalibration(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, &app.Options{DisableSchedulers: true})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	buckets, err := application.Store().CalibrationBuckets(ctx)
	if err != nil {
		return fmt.Errorf("load calibration buckets: %w", err)
	}

	fmt.Printf("=== Calibration Buckets ===\n\n")
	fmt.Printf("%-12s %6s %6s %6s %10s %8s\n", "confidence", "wins", "losses", "pushes", "win-rate", "error")
	for _, b := range buckets {
		winRate := "-"
		if b.Decided() > 0 {
			winRate = fmt.Sprintf("%.3f", b.WinRate())
		}
		fmt.Printf("[%2.0f%%, %2.0f%%)  %6d %6d %6d %10s %8.3f\n",
			b.Low, b.High, b.Wins, b.Losses, b.Pushes, winRate, b.CalibrationError)
	}

	return nil
}
