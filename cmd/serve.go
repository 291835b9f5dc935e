package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sharpline/sharpline/internal/app"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation service",
	Long: `Starts the sharpline service, which will:
1. Serve wager evaluations over HTTP on POST /api/evaluate
2. Mirror the odds feed into the market snapshot cache (when configured)
3. Settle pending wagers against final results on a schedule
4. Mine the settled ledger for learning rules on a schedule

Use --dry-run to evaluate without writing wagers to the ledger, and
--no-schedulers when another instance owns settlement and learning.`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("dry-run", false, "Evaluate without persisting wagers")
	serveCmd.Flags().Bool("no-schedulers", false, "Disable the settlement and learning loops")
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; environment variables win either way
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

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noSchedulers, _ := cmd.Flags().GetBool("no-schedulers")

	opts := &app.Options{
		DryRun:            dryRun,
		DisableSchedulers: noSchedulers,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
