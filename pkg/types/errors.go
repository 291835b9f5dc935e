package types

import "fmt"

// Pipeline error codes. These are terminal classifications, not exceptions:
// each one still yields a structured evaluation result.
const (
	ErrCodeDataUnavailable        = "data_unavailable"
	ErrCodeInsufficientSample     = "insufficient_sample"
	ErrCodeNoLineProvided         = "no_line_provided"
	ErrCodeSettlementUnresolvable = "settlement_unresolvable"
)

// StageError records a failure inside one pipeline stage. The orchestrator
// collects these as missing-artifact markers; they never abort the run.
type StageError struct {
	Code    string
	Stage   string
	Message string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %s (%s)", e.Stage, e.Message, e.Code)
}

// NewStageError builds a StageError for the given stage and code.
func NewStageError(stage, code, format string, args ...any) *StageError {
	return &StageError{
		Code:    code,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}
