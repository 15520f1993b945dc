// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration for the vision service. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":5001".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory detect admission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of detector workers.
	WorkerCount int `koanf:"worker_count"`

	// StatsWindowSize bounds the rolling window of request outcomes
	// backing GET /stats.
	StatsWindowSize int `koanf:"stats_window_size"`

	// DetectTimeoutMS bounds how long a detect request waits for its outcome.
	DetectTimeoutMS int `koanf:"detect_timeout_ms"`

	// ShutdownTimeoutMS bounds graceful shutdown of the HTTP server.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// DetectorLatencyMinMS and DetectorLatencyMaxMS simulate model inference latency bounds.
	DetectorLatencyMinMS int `koanf:"detector_latency_min_ms"`
	DetectorLatencyMaxMS int `koanf:"detector_latency_max_ms"`

	// WeightsPath names the trained checkpoint the service will eventually
	// load. Only checked for presence at startup; the stub detector does
	// not read it.
	WeightsPath string `koanf:"weights_path"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:             "info",
		Addr:                 ":5001",
		QueueSize:            256,
		WorkerCount:          runtime.NumCPU(),
		StatsWindowSize:      1024,
		DetectTimeoutMS:      30_000,
		ShutdownTimeoutMS:    30_000,
		DetectorLatencyMinMS: 0,
		DetectorLatencyMaxMS: 0,
		WeightsPath:          "UI_Element_Detection/run1/weights/best.pt",
	}
	return c
}
