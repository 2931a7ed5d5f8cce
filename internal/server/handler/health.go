package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	status func() domain.BotStatus
}

// NewHealthHandler creates a HealthHandler. status may be nil.
func NewHealthHandler(status func() domain.BotStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

// HealthCheck reports that the process is serving, plus the last observed
// bot and venue state.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.status != nil {
		st := h.status()
		resp["bot_status"] = st.State
		resp["venue_status"] = st.Venue
	}
	writeJSON(w, http.StatusOK, resp)
}
