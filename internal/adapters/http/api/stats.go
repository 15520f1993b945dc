// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsDependencies defines the interface for outcome statistics
type StatsDependencies interface {
	Stats(ctx context.Context) (Snapshot, error)
	RecentOutcomes(ctx context.Context, n int) ([]Outcome, error)
}

// statsResponse combines service counters with the outcome window view.
type statsResponse struct {
	Service map[string]interface{} `json:"service"`
	Window  Snapshot               `json:"window"`
	Recent  []Outcome              `json:"recent,omitempty"`
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	deps          StatsDependencies
	maxRecent     int
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, deps StatsDependencies, maxRecent int) *StatsHandler {
	return &StatsHandler{
		statsProvider: statsProvider,
		deps:          deps,
		maxRecent:     maxRecent,
	}
}

// HandleStats handles GET /stats?recent=N requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, Wrap(op, err))
		return
	}
	resp := statsResponse{
		Service: h.statsProvider.GetStats(),
		Window:  snap,
	}

	if recentStr := r.URL.Query().Get("recent"); recentStr != "" {
		n, err := strconv.Atoi(recentStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxRecent {
			writeError(w, http.StatusBadRequest, NewKind(op, ErrBadRequest))
			return
		}
		recent, err := h.deps.RecentOutcomes(r.Context(), n)
		if err != nil {
			writeError(w, http.StatusInternalServerError, Wrap(op, err))
			return
		}
		resp.Recent = recent
	}
	writeJSON(w, http.StatusOK, resp)
}
