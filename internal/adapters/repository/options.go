package repository

import "time"

// Option applies a configuration option to the WindowStore.
type Option func(*WindowStore)

// WithCapacity sets the number of outcomes the rolling window retains.
func WithCapacity(n int) Option {
	return func(s *WindowStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithSnapshotInterval sets the interval for background snapshot publishing.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *WindowStore) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *WindowStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
