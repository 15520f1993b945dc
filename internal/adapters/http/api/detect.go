// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atomdellow/autodesktop/pkg/logger"
)

// DetectDependencies defines the interface for detection dependencies
type DetectDependencies interface {
	Detect(ctx context.Context, screenshot []byte) ([]Detection, error)
}

// DetectHandler handles detection requests
type DetectHandler struct {
	deps   DetectDependencies
	logger logger.Logger
}

// NewDetectHandler creates a new detect handler
func NewDetectHandler(deps DetectDependencies) *DetectHandler {
	return &DetectHandler{
		deps:   deps,
		logger: logger.Get().Named("api"),
	}
}

// HandleDetect handles POST /detect requests
func (h *DetectHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	const op = "api.detect"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An undecodable body and a missing field share one contract error.
		h.logger.Warn(r.Context(), "rejecting undecodable detect body",
			logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeError(w, http.StatusBadRequest, ErrNoScreenshot)
		return
	}
	if req.Screenshot == nil {
		writeError(w, http.StatusBadRequest, ErrNoScreenshot)
		return
	}

	// Any present string is accepted, the empty string included. The payload
	// stays opaque here; decoding is the detector's concern.
	detections, err := h.deps.Detect(r.Context(), []byte(*req.Screenshot))
	if err != nil {
		h.logger.Error(r.Context(), "detect failed", logger.Error(Wrap(op, err)))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, detectResponse{Detections: detections})
}
