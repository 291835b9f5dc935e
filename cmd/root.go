package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "sharpline",
	Short: "Sports wager evaluation service",
	Long: `Sharpline evaluates sports wagers end to end: it pulls team, player and
market context from the warehouse, projects scoring distributions, runs a
Monte Carlo simulation over the posted line, stress-tests the result with an
adversarial debate pass, and sizes anything worth betting.

Settled wagers feed a calibration ledger, and a learning pass mines the
ledger for systematic mistakes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
