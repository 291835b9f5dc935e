package pipeline

import "github.com/sharpline/sharpline/pkg/types"

// State is one position in the evaluation pipeline.
type State string

const (
	StateAwaitingContext State = "awaiting_context"
	StateContextFetched  State = "context_fetched"
	StateProjected       State = "projected"
	StateSimulated       State = "simulated"
	StateDebated         State = "debated"
	StateDone            State = "done"
)

// Artifacts holds everything produced so far for one request. The edge
// result may stay nil when the market carries no usable prices; every other
// artifact gates the transition to the stage after it.
type Artifacts struct {
	Context    *types.Context
	Projection *types.Projection
	Simulation *types.SimulationResult
	Edge       *types.EdgeResult
	Debate     *types.DebateResult
}

// Retry discards everything derived from the context but keeps the context
// itself; it does not go stale within a single evaluation, so only failed
// artifacts are rebuilt. It returns the retained artifacts and the state the
// retry resumes from.
func Retry(a Artifacts) (Artifacts, State) {
	kept := Artifacts{Context: a.Context}
	return kept, Next(kept)
}

// Next returns the stage that produces the earliest missing artifact. It is
// a pure function of the artifacts: the orchestrator detects a failed stage
// by observing that Next did not advance.
func Next(a Artifacts) State {
	switch {
	case a.Context == nil:
		return StateAwaitingContext
	case a.Projection == nil:
		return StateContextFetched
	case a.Simulation == nil:
		return StateProjected
	case a.Debate == nil:
		return StateSimulated
	default:
		return StateDebated
	}
}
