package httpserver

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// Evaluator runs one wager evaluation to a terminal state.
type Evaluator interface {
	Evaluate(ctx context.Context, req types.EvaluationRequest) (*types.Evaluation, error)
}

// CalibrationSource reads the calibration buckets from the ledger.
type CalibrationSource interface {
	CalibrationBuckets(ctx context.Context) ([]types.CalibrationBucket, error)
}

// EvaluateHandler serves the evaluation and calibration endpoints.
type EvaluateHandler struct {
	evaluator   Evaluator
	calibration CalibrationSource
	logger      *zap.Logger
}

// NewEvaluateHandler creates the API handler.
func NewEvaluateHandler(evaluator Evaluator, calibration CalibrationSource, logger *zap.Logger) *EvaluateHandler {
	return &EvaluateHandler{
		evaluator:   evaluator,
		calibration: calibration,
		logger:      logger,
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleEvaluate handles POST /api/evaluate requests.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req types.EvaluationRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if msg, ok := validate(req); !ok {
		h.writeError(w, msg, http.StatusBadRequest)
		return
	}

	ev, err := h.evaluator.Evaluate(r.Context(), req)
	if err != nil {
		// The only error path is a dead request context.
		h.logger.Warn("evaluation-aborted", zap.Error(err))
		h.writeError(w, "evaluation cancelled", http.StatusRequestTimeout)
		return
	}

	h.writeJSON(w, http.StatusOK, ev)
}

// HandleCalibration handles GET /api/calibration requests.
func (h *EvaluateHandler) HandleCalibration(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.calibration.CalibrationBuckets(r.Context())
	if err != nil {
		h.logger.Error("calibration-query-failed", zap.Error(err))
		h.writeError(w, "calibration unavailable", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func validate(req types.EvaluationRequest) (string, bool) {
	switch req.BetType {
	case types.BetTypeTotal, types.BetTypeSpread:
		if req.HomeTeam == "" || req.AwayTeam == "" {
			return "home_team and away_team are required", false
		}
	case types.BetTypePlayerProp:
		if req.Player == "" || req.Stat == "" {
			return "player and stat are required", false
		}
	default:
		return "bet_type must be total, spread or player_prop", false
	}
	return "", true
}

func (h *EvaluateHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *EvaluateHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
