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
var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Run one learning pass over the settled ledger",
	Long: `Mines the settled ledger for systematic mistakes -- high-edge losers,
overconfident calibration buckets and bleeding bet types -- and records a
learning rule for each new pattern found.`,
	RunE: runLearn,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(learnCmd)
}

func runLearn(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	rules, err := application.Analyzer().RunPass(ctx)
	if err != nil {
		return fmt.Errorf("learning pass: %w", err)
	}

	if len(rules) == 0 {
		fmt.Println("No new patterns found")
		return nil
	}

	fmt.Printf("=== New Learning Rules ===\n\n")
	for _, r := range rules {
		fmt.Printf("%s\n", r.Condition)
		fmt.Printf("  adjustment: %+.4f  triggers: %d\n", r.Adjustment, r.Triggers)
		fmt.Printf("  evidence:   %s\n\n", r.Evidence)
	}

	return nil
}
