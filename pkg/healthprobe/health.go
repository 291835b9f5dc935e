package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker provides liveness and readiness checks. Readiness is the
// conjunction of per-component flags (warehouse, ledger, odds feed), so a
// dropped feed takes the instance out of rotation without killing it.
type HealthChecker struct {
	startTime  time.Time
	mu         sync.RWMutex
	components map[string]bool
}

// New creates a new HealthChecker with no components registered.
func New() *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]bool),
	}
}

// SetComponent records one component's readiness.
func (h *HealthChecker) SetComponent(name string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = ready
}

// ready reports whether every registered component is ready. An instance
// with no registered components is not ready.
func (h *HealthChecker) isReady() (bool, map[string]bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make(map[string]bool, len(h.components))
	allReady := len(h.components) > 0
	for name, ok := range h.components {
		snapshot[name] = ok
		if !ok {
			allReady = false
		}
	}
	return allReady, snapshot
}

// HealthResponse is the health/readiness check body.
type HealthResponse struct {
	Status     string          `json:"status"`
	Uptime     string          `json:"uptime"`
	Components map[string]bool `json:"components,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every component is ready, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, components := h.isReady()

		resp := HealthResponse{
			Status:     "ready",
			Uptime:     time.Since(h.startTime).String(),
			Components: components,
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			resp.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
