package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sharpline/sharpline/pkg/healthprobe"
	"github.com/sharpline/sharpline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEvaluator struct {
	lastReq types.EvaluationRequest
	result  *types.Evaluation
	err     error
}

func (s *stubEvaluator) Evaluate(_ context.Context, req types.EvaluationRequest) (*types.Evaluation, error) {
	s.lastReq = req
	return s.result, s.err
}

type stubCalibration struct {
	buckets []types.CalibrationBucket
	err     error
}

func (s *stubCalibration) CalibrationBuckets(_ context.Context) ([]types.CalibrationBucket, error) {
	return s.buckets, s.err
}

func newTestServer(eval Evaluator, cal CalibrationSource) *Server {
	hc := healthprobe.New()
	hc.SetComponent("warehouse", true)
	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		Evaluator:     eval,
		Calibration:   cal,
	})
}

func postEvaluate(t *testing.T, srv *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", bytes.NewReader(raw))
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleEvaluate(t *testing.T) {
	eval := &stubEvaluator{
		result: &types.Evaluation{
			ID:             "ev-1",
			Recommendation: types.TierLean,
			Selection:      types.SelectionOver,
			Confidence:     0.56,
			Quality:        types.QualityFresh,
		},
	}
	srv := newTestServer(eval, &stubCalibration{})

	rec := postEvaluate(t, srv, types.EvaluationRequest{
		BetType:  types.BetTypeTotal,
		HomeTeam: "celtics",
		AwayTeam: "lakers",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got types.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ev-1", got.ID)
	assert.Equal(t, types.TierLean, got.Recommendation)
	assert.Equal(t, "celtics", eval.lastReq.HomeTeam)
}

func TestHandleEvaluateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  types.EvaluationRequest
	}{
		{name: "unknown-bet-type", req: types.EvaluationRequest{BetType: "parlay"}},
		{name: "missing-teams", req: types.EvaluationRequest{BetType: types.BetTypeTotal, HomeTeam: "celtics"}},
		{name: "missing-stat", req: types.EvaluationRequest{BetType: types.BetTypePlayerProp, Player: "tatum"}},
	}

	srv := newTestServer(&stubEvaluator{}, &stubCalibration{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postEvaluate(t, srv, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleEvaluateMalformedBody(t *testing.T) {
	srv := newTestServer(&stubEvaluator{}, &stubCalibration{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", bytes.NewReader([]byte("{not json")))
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCalibration(t *testing.T) {
	cal := &stubCalibration{
		buckets: []types.CalibrationBucket{
			{Low: 50, High: 60, Wins: 12, Losses: 10, Pushes: 1, CalibrationError: 0.004},
		},
	}
	srv := newTestServer(&stubEvaluator{}, cal)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calibration", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Buckets []types.CalibrationBucket `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Buckets, 1)
	assert.Equal(t, 12, resp.Buckets[0].Wins)
}

func TestHandleCalibrationError(t *testing.T) {
	srv := newTestServer(&stubEvaluator{}, &stubCalibration{err: errors.New("ledger down")})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calibration", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&stubEvaluator{}, &stubCalibration{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
