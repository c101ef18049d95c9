package handler

import "net/http"

// QueueStats exposes the job queue fill level.
type QueueStats interface {
	Depth() int
	Capacity() int
}

// MetricsHandler serves a human-readable JSON snapshot.
// Raw Prometheus metrics are served separately at /metrics.
type MetricsHandler struct {
	q       QueueStats
	broker  ConnectionChecker
	workers int
}

func NewMetricsHandler(q QueueStats, broker ConnectionChecker, workers int) *MetricsHandler {
	return &MetricsHandler{q: q, broker: broker, workers: workers}
}

// GetMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"queue": map[string]int{
			"depth":    h.q.Depth(),
			"capacity": h.q.Capacity(),
		},
		"workers":          h.workers,
		"broker_connected": h.broker.IsConnected(),
	})
}
