package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atomdellow/autodesktop/pkg/metrics"
)

// Ring-buffer backed, in-memory Store implementation.
//
// Outcomes are kept in a fixed-capacity ring ordered by arrival. Aggregates
// are published as immutable snapshots behind an atomic pointer so that
// readers never contend with writers on the hot path.

// WindowStore retains the most recent request outcomes and serves
// aggregate statistics over them.
type WindowStore struct {
	mu       sync.RWMutex
	ring     []Outcome
	head     int // next write position
	size     int // outcomes currently retained
	capacity int

	// Lifetime counters, monotonically increasing.
	total     int64
	succeeded int64
	failed    int64

	closed bool

	snapshotInterval      time.Duration // How often to publish periodic snapshots
	metricsUpdateInterval time.Duration // How often to refresh window gauges

	// snapshot is an atomic pointer to the latest published Snapshot
	snapshot atomic.Pointer[Snapshot]
	// dirty marks that outcomes arrived since the last publish
	dirty atomic.Bool

	// Background goroutine management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWindowStore constructs a window store with configuration options.
func NewWindowStore(ctx context.Context, opts ...Option) *WindowStore {
	s := &WindowStore{
		capacity:              1024,            // default window capacity
		snapshotInterval:      1 * time.Second, // default snapshot interval
		metricsUpdateInterval: 5 * time.Second, // default metrics interval
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.ring = make([]Outcome, s.capacity)

	// Initialize stop channel and start background goroutines
	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)
	s.startMetricsUpdater(ctx)

	return s
}

// startPeriodicSnapshots starts a background goroutine that publishes snapshots at the configured interval
func (s *WindowStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if s.dirty.Load() {
					s.publishSnapshot()
				}
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes a new snapshot
func (s *WindowStore) publishSnapshot() {
	s.mu.RLock()
	snap := s.buildSnapshotInternal()
	s.mu.RUnlock()

	s.snapshot.Store(snap)
	s.dirty.Store(false)
}

// buildSnapshotInternal computes aggregates over the ring (assumes lock is held)
func (s *WindowStore) buildSnapshotInternal() *Snapshot {
	snap := &Snapshot{
		Total:      s.total,
		Succeeded:  s.succeeded,
		Failed:     s.failed,
		WindowSize: s.size,
		Capacity:   s.capacity,
		BuiltAt:    time.Now(),
	}
	if s.size == 0 {
		return snap
	}

	// Collect retained latencies in milliseconds
	latencies := make([]float64, 0, s.size)
	var sum float64
	for i := 0; i < s.size; i++ {
		idx := (s.head - 1 - i + s.capacity) % s.capacity
		ms := float64(s.ring[idx].Duration) / float64(time.Millisecond)
		latencies = append(latencies, ms)
		sum += ms
	}
	sort.Float64s(latencies)

	newest := (s.head - 1 + s.capacity) % s.capacity
	snap.LastAt = s.ring[newest].At
	snap.AvgLatencyMS = sum / float64(s.size)
	snap.P50LatencyMS = percentile(latencies, 50)
	snap.P95LatencyMS = percentile(latencies, 95)
	snap.MaxLatencyMS = latencies[len(latencies)-1]
	return snap
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// startMetricsUpdater starts a background goroutine that updates window metrics
func (s *WindowStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

// updateMetrics refreshes the window size gauge
func (s *WindowStore) updateMetrics() {
	s.mu.RLock()
	size := s.size
	s.mu.RUnlock()

	metrics.UpdateOutcomeWindowSize(size)
}

// Close gracefully shuts down the background goroutines.
func (s *WindowStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// Signal all goroutines to stop
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Record implements Store.Record in O(1) time.
func (s *WindowStore) Record(ctx context.Context, o Outcome) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("repository", "closed")
		return ErrClosed
	}

	s.ring[s.head] = o
	s.head = (s.head + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	s.total++
	if o.OK {
		s.succeeded++
	} else {
		s.failed++
	}
	s.mu.Unlock()

	metrics.RecordOutcome(o.At.Unix())
	s.dirty.Store(true)
	return nil
}

// Stats implements Store.Stats. It serves the latest published snapshot and
// rebuilds synchronously when outcomes arrived since the last publish.
func (s *WindowStore) Stats(ctx context.Context) (Snapshot, error) {
	if snap := s.snapshot.Load(); snap != nil && !s.dirty.Load() {
		return *snap, nil
	}

	s.publishSnapshot()
	return *s.snapshot.Load(), nil
}

// Recent implements Store.Recent, returning up to n outcomes newest first.
func (s *WindowStore) Recent(ctx context.Context, n int) ([]Outcome, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.size {
		n = s.size
	}
	out := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.head - 1 - i + s.capacity) % s.capacity
		out = append(out, s.ring[idx])
	}
	return out, nil
}

// Count returns the lifetime number of outcomes recorded.
func (s *WindowStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.total)
}
