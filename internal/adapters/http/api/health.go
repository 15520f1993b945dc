// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/atomdellow/autodesktop/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthResponse is the liveness snapshot served at /healthz.
type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	QueueLength   int     `json:"queue_length"`
	TotalOutcomes int     `json:"total_outcomes"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	statsProvider StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(statsProvider StatsProvider) *HealthHandler {
	return &HealthHandler{statsProvider: statsProvider}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := healthResponse{Status: "ok"}
	stats := h.statsProvider.GetStats()
	if started, ok := stats["started"].(bool); !ok || !started {
		resp.Status = "starting"
	}
	if v, ok := stats["uptimeSeconds"].(float64); ok {
		resp.UptimeSeconds = v
	}
	if v, ok := stats["queueLength"].(int); ok {
		resp.QueueLength = v
	}
	if v, ok := stats["totalOutcomes"].(int); ok {
		resp.TotalOutcomes = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// MetricsHandler serves the Prometheus exposition endpoint.
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// HandleMetrics handles GET /metrics requests.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	// Use our custom metrics registry to serve metrics
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
