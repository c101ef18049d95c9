package handler

import "net/http"

// ConnectionChecker reports broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	broker ConnectionChecker
}

func NewHealthHandler(broker ConnectionChecker) *HealthHandler {
	return &HealthHandler{broker: broker}
}

// Health handles GET /health. The process is alive if it can answer.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready: 200 while the broker connection is up, 503
// otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.broker.IsConnected() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"broker": "disconnected",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"broker": "connected",
	})
}
