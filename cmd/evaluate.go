package cmd

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/sharpline/sharpline/internal/app"
	"github.com/sharpline/sharpline/pkg/config"
	"github.com/sharpline/sharpline/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single wager and print the result",
	Long: `Runs one wager through the full pipeline and prints the evaluation as JSON.

Team markets take --home and --away; player props take --player and --stat.
Without --line the market line from the warehouse is used. Evaluations are
not persisted unless --persist is set.`,
	RunE: runEvaluate,
}

var (
	evalBetType string
	evalHome    string
	evalAway    string
	evalPlayer  string
	evalStat    string
	evalLine    float64
	evalDepth   string
	evalPersist bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evalBetType, "bet-type", "b", "", "Market to evaluate: total, spread or player_prop")
	evaluateCmd.Flags().StringVar(&evalHome, "home", "", "Home team name")
	evaluateCmd.Flags().StringVar(&evalAway, "away", "", "Away team name")
	evaluateCmd.Flags().StringVar(&evalPlayer, "player", "", "Player name (player props)")
	evaluateCmd.Flags().StringVar(&evalStat, "stat", "", "Player stat (player props): points, rebounds or assists")
	evaluateCmd.Flags().Float64VarP(&evalLine, "line", "l", 0, "Line to evaluate against (defaults to the market line)")
	evaluateCmd.Flags().StringVarP(&evalDepth, "depth", "d", "standard", "Simulation depth: quick, standard or deep")
	evaluateCmd.Flags().BoolVar(&evalPersist, "persist", false, "Write bet-tier results to the ledger")

	_ = evaluateCmd.MarkFlagRequired("bet-type")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, &app.Options{
		DryRun:            !evalPersist,
		DisableSchedulers: true,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	req := types.EvaluationRequest{
		BetType:  types.BetType(evalBetType),
		HomeTeam: evalHome,
		AwayTeam: evalAway,
		Player:   evalPlayer,
		Stat:     evalStat,
		Depth:    evalDepth,
	}
	if cmd.Flags().Changed("line") {
		line := evalLine
		req.Line = &line
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	ev, err := application.Orchestrator().Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	out, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
