// Package repository defines the request outcome store interface and errors.
package repository

import (
	"context"
	"time"
)

// Outcome represents one completed detect request.
type Outcome struct {
	At         time.Time     `json:"at"`         // completion time
	Duration   time.Duration `json:"duration"`   // end-to-end handling time
	OK         bool          `json:"ok"`         // false when the detector returned an error
	Detections int           `json:"detections"` // number of detections returned
}

// Snapshot is an immutable aggregate view over the rolling window.
type Snapshot struct {
	Total     int64 `json:"total"` // lifetime outcomes recorded
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`

	WindowSize int `json:"window_size"` // outcomes currently retained
	Capacity   int `json:"capacity"`

	// Latency aggregates computed over the retained window, in milliseconds.
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	P50LatencyMS float64 `json:"p50_latency_ms"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
	MaxLatencyMS float64 `json:"max_latency_ms"`

	LastAt  time.Time `json:"last_at"` // completion time of the newest outcome
	BuiltAt time.Time `json:"built_at"`
}

// Store provides write access to request outcomes and aggregate reads.
type Store interface {
	// Record appends one outcome to the window, evicting the oldest entry
	// when the window is full. Returns ErrClosed after Close.
	Record(ctx context.Context, o Outcome) error

	// Stats returns the current aggregate snapshot.
	Stats(ctx context.Context) (Snapshot, error)

	// Recent returns up to n outcomes, newest first.
	// Returns ErrInvalidLimit when n is not positive.
	Recent(ctx context.Context, n int) ([]Outcome, error)

	// Count returns the lifetime number of outcomes recorded.
	Count(ctx context.Context) int
}
