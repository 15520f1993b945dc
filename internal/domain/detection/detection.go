// Package detection contains domain types passed between layers.
package detection

import (
	"context"
	"time"
)

// Detection represents one labeled region found in a screenshot.
// Fields mirror the wire schema for /detect responses.
type Detection struct {
	Label      string  `json:"label"`      // UI element class, e.g. "button"
	Confidence float64 `json:"confidence"` // model confidence in [0, 1]
	Box        []int   `json:"box"`        // left, top, right, bottom in pixels
}

// Result is the full payload returned for one screenshot.
type Result struct {
	Detections []Detection `json:"detections"`
}

// Detector maps screenshot bytes to detections. Implementations may call an
// external model; the shipped stub ignores its input and returns a fixed set.
type Detector interface {
	// Detect runs detection, honoring ctx for cancellation.
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Task is one unit of detect work flowing through the admission queue.
type Task struct {
	ID         string    // unique id for tracing
	Payload    []byte    // raw screenshot bytes, still base64 at this stage
	EnqueuedAt time.Time // admission time
	Reply      chan Outcome
}

// Outcome carries a detector's answer back to the submitting request.
type Outcome struct {
	Detections []Detection
	Err        error
}
