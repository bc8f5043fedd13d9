package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	mode      string
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler reporting the given operating
// mode and process start time.
func NewHealthHandler(mode string, startedAt time.Time) *HealthHandler {
	return &HealthHandler{mode: mode, startedAt: startedAt}
}

// HealthCheck reports liveness along with the operating mode and uptime.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"mode":   h.mode,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}
