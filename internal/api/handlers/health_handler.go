package handlers

import (
	"context"
	"net/http"
)

// HealthCheck is an optional dependency probe
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a health handler. checks may be empty.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Ready handles GET /ready by running every dependency check
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unavailable",
			"failures": failures,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
