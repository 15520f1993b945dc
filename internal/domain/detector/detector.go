// Package detector defines the contract for producing detections from screenshots.
package detector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/atomdellow/autodesktop/internal/domain/detection"
)

// Default detector configuration constants.
const (
	defaultRandomSeed = 42
)

// Option applies a configuration option to the StubDetector.
type Option func(*StubDetector)

// WithLatencyRange sets a simulated inference latency range. Both bounds zero
// (the default) disables the delay entirely.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(d *StubDetector) {
		if minLatency >= 0 && maxLatency > minLatency {
			d.minLatency = minLatency
			d.maxLatency = maxLatency
		}
	}
}

// StubDetections returns a fresh copy of the fixed detection set the stub
// produces for every screenshot. Callers may mutate the returned slice.
func StubDetections() []detection.Detection {
	out := make([]detection.Detection, len(stubSet))
	for i, d := range stubSet {
		out[i] = detection.Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        append([]int(nil), d.Box...),
		}
	}
	return out
}

// stubSet is the placeholder output served until a real model is integrated.
// Order is load-bearing: responses list entries exactly in this order.
var stubSet = []detection.Detection{
	{Label: "button", Confidence: 0.95, Box: []int{100, 150, 200, 180}},
	{Label: "text_input", Confidence: 0.88, Box: []int{300, 250, 450, 280}},
	{Label: "scrollbar", Confidence: 0.75, Box: []int{780, 50, 795, 500}},
}

// StubDetector implements detection.Detector with a fixed response.
// It stands in for the trained UI-element model until one is wired in.
type StubDetector struct {
	// Simulated inference latency range; zero means no delay
	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand
}

// NewStubDetector creates a stub detector with configuration options.
func NewStubDetector(opts ...Option) *StubDetector {
	d := &StubDetector{
		rng: rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect returns the fixed detection set regardless of input. The image bytes
// are never decoded; content validation is a future concern of the real model.
func (d *StubDetector) Detect(ctx context.Context, _ []byte) ([]detection.Detection, error) {
	if d.maxLatency > 0 {
		// Simulate model inference latency
		latency := d.minLatency + time.Duration(d.rng.Int63n(int64(d.maxLatency-d.minLatency)))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(latency):
			// Continue with detection
		}
	}

	return StubDetections(), nil
}
