// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atomdellow/autodesktop/internal/adapters/repository"
	"github.com/atomdellow/autodesktop/internal/domain/detection"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Detect pushes one screenshot through the detection pipeline and
	// blocks until its outcome arrives.
	Detect(ctx context.Context, screenshot []byte) ([]Detection, error)

	// Read operations expose outcome statistics.
	Stats(ctx context.Context) (Snapshot, error)
	RecentOutcomes(ctx context.Context, n int) ([]Outcome, error)
}

// Detection mirrors the read shape returned by detect calls.
type Detection = detection.Detection

// Snapshot and Outcome mirror the read shapes returned by stats queries.
type (
	Snapshot = repository.Snapshot
	Outcome  = repository.Outcome
)

// Server wires HTTP routes for the business API.
type Server struct {
	detectHandler    *DetectHandler
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	metricsHandler   *MetricsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRecent int) *Server {
	return &Server{
		detectHandler:    NewDetectHandler(deps),
		healthHandler:    NewHealthHandler(statsProvider),
		statsHandler:     NewStatsHandler(statsProvider, deps, maxRecent),
		metricsHandler:   NewMetricsHandler(),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/detect", MetricsMiddleware(s.detectHandler.HandleDetect, "detect"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
}

// detectRequest mirrors the OpenAPI schema for POST /detect. Screenshot is a
// pointer so an absent field and a JSON null are distinguishable from an
// empty string, which is a valid value.
type detectRequest struct {
	Screenshot *string `json:"screenshot"`
}

// detectResponse mirrors the OpenAPI schema for a successful detection.
type detectResponse = detection.Result

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
