package debate

import (
	"fmt"
	"sort"

	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// Config holds debate engine configuration.
type Config struct {
	// TopK caps how many arguments per side count toward its strength.
	TopK int
	// WinnerThreshold is the net-signal magnitude needed to declare a
	// non-neutral winner.
	WinnerThreshold float64
	MinSampleGames  int
	Logger          *zap.Logger
}

// Engine runs the two argument catalogs against the same snapshot and scores
// the debate. Both argument lists are retained verbatim in the result.
type Engine struct {
	cfg        Config
	supporting []Rule
	opposing   []Rule
	logger     *zap.Logger
}

// New creates a new debate engine over the built-in rule catalogs.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		supporting: SupportingRules(),
		opposing:   OpposingRules(),
		logger:     cfg.Logger,
	}
}

// Debate evaluates every rule in both catalogs and derives the verdict.
// The opposing side always carries at least its structural arguments, so the
// debate is never one-sided.
func (e *Engine) Debate(in Input) (*types.DebateResult, error) {
	if in.Simulation == nil {
		return nil, fmt.Errorf("simulation result is nil")
	}
	if in.MinSampleGames == 0 {
		in.MinSampleGames = e.cfg.MinSampleGames
	}

	supporting := e.run(e.supporting, in)
	opposing := e.run(e.opposing, in)

	supportStrength := e.sideStrength(supporting)
	opposeStrength := e.sideStrength(opposing)
	net := supportStrength - opposeStrength

	winner := types.WinnerNeutral
	switch {
	case net > e.cfg.WinnerThreshold:
		winner = types.WinnerSupporting
	case net < -e.cfg.WinnerThreshold:
		winner = types.WinnerOpposing
	}

	DebatesTotal.WithLabelValues(string(winner)).Inc()

	e.logger.Debug("debate-complete",
		zap.String("selection", string(in.Selection)),
		zap.Int("supporting-arguments", len(supporting)),
		zap.Int("opposing-arguments", len(opposing)),
		zap.Float64("support-strength", supportStrength),
		zap.Float64("oppose-strength", opposeStrength),
		zap.Float64("net-signal", net),
		zap.String("winner", string(winner)))

	return &types.DebateResult{
		Supporting:      supporting,
		Opposing:        opposing,
		SupportStrength: supportStrength,
		OpposeStrength:  opposeStrength,
		NetSignal:       net,
		Winner:          winner,
	}, nil
}

// run evaluates one catalog; each rule contributes at most one argument.
func (e *Engine) run(rules []Rule, in Input) []types.Argument {
	var args []types.Argument
	for _, rule := range rules {
		arg, ok := rule.Evaluate(in)
		if !ok {
			continue
		}
		args = append(args, arg)
	}
	return args
}

// sideStrength is the mean strength of the side's top-K arguments.
func (e *Engine) sideStrength(args []types.Argument) float64 {
	if len(args) == 0 {
		return 0
	}

	sorted := make([]types.Argument, len(args))
	copy(sorted, args)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strength > sorted[j].Strength
	})

	k := e.cfg.TopK
	if k <= 0 || k > len(sorted) {
		k = len(sorted)
	}

	sum := 0.0
	for _, a := range sorted[:k] {
		sum += a.Strength
	}
	return sum / float64(k)
}
