// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	taskqueue "github.com/atomdellow/autodesktop/internal/adapters/mq/queue"
	workerpool "github.com/atomdellow/autodesktop/internal/adapters/mq/worker"
	repository "github.com/atomdellow/autodesktop/internal/adapters/repository"
	"github.com/atomdellow/autodesktop/internal/domain/detection"
	"github.com/atomdellow/autodesktop/internal/domain/detector"
	"github.com/atomdellow/autodesktop/pkg/logger"
	"github.com/atomdellow/autodesktop/pkg/metrics"
	"github.com/google/uuid"
)

// Service implements the API dependencies for the detection system.
type Service struct {
	mu sync.RWMutex

	// Core components
	outcomes   repository.Store
	taskQueue  taskqueue.Queue
	det        detection.Detector
	workerPool *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	windowSize    int
	detectTimeout time.Duration
	// Simulated detector latency configuration
	detectorMinLatency time.Duration
	detectorMaxLatency time.Duration

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the admission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWindowSize sets the capacity of the outcome stats window.
func WithWindowSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.windowSize = size
		}
	}
}

// WithDetector injects a custom detector implementation.
func WithDetector(d detection.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.det = d
		}
	}
}

// WithDetectTimeout bounds how long a request waits for its outcome.
func WithDetectTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.detectTimeout = timeout
		}
	}
}

// WithDetectorLatencyRange sets the simulated detector latency range.
// It only affects the stub detector constructed when none is injected.
func WithDetectorLatencyRange(min, max time.Duration) Option {
	return func(s *Service) {
		if min >= 0 && max > min {
			s.detectorMinLatency = min
			s.detectorMaxLatency = max
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(), // one worker per core by default
		queueSize:     256,              // default admission queue size
		windowSize:    1024,             // default stats window capacity
		detectTimeout: 30 * time.Second,
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting detection service...")

	// Initialize components
	s.outcomes = repository.NewWindowStore(ctx,
		repository.WithCapacity(s.windowSize),
	)
	s.taskQueue = taskqueue.NewInMemoryQueue(
		taskqueue.WithCapacity(s.queueSize),
		taskqueue.WithBufferSize(s.queueSize),
	)
	if s.det == nil {
		s.det = detector.NewStubDetector(
			detector.WithLatencyRange(s.detectorMinLatency, s.detectorMaxLatency),
		)
		s.logger.Info(ctx, "using stub detector")
	}

	// Create and start worker pool
	s.workerPool = workerpool.NewPool(s.workerCount, s.taskQueue, s.det)
	s.workerPool.Start(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "detection service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("windowSize", s.windowSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping detection service...")

	// Stop worker pool
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	// Close queue
	if q, ok := s.taskQueue.(*taskqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	// Close outcome store
	if s.outcomes != nil {
		if closer, ok := s.outcomes.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "detection service stopped")
}

// Detect admits a screenshot into the queue and waits for its outcome.
// The returned detections are in model output order.
func (s *Service) Detect(ctx context.Context, screenshot []byte) ([]detection.Detection, error) {
	start := time.Now()
	metrics.RecordDetectRequest()
	defer func() {
		metrics.RecordDetectLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	started := s.started
	q := s.taskQueue
	store := s.outcomes
	timeout := s.detectTimeout
	s.mu.RUnlock()

	if !started {
		metrics.RecordDetectError()
		return nil, ErrNotStarted
	}

	task := taskqueue.Task{
		ID:         uuid.NewString(),
		Payload:    screenshot,
		EnqueuedAt: start,
		Reply:      make(chan detection.Outcome, 1),
	}

	if !q.Enqueue(ctx, task) {
		metrics.RecordDetectError()
		if q.IsClosed() {
			return nil, fmt.Errorf("admitting task %s: %w", task.ID, taskqueue.ErrStopped)
		}
		return nil, fmt.Errorf("admitting task %s: %w", task.ID, ErrQueueFull)
	}

	select {
	case outcome := <-task.Reply:
		if outcome.Err != nil {
			metrics.RecordDetectError()
			_ = store.Record(ctx, repository.Outcome{
				At:       time.Now(),
				Duration: time.Since(start),
			})
			return nil, outcome.Err
		}
		_ = store.Record(ctx, repository.Outcome{
			At:         time.Now(),
			Duration:   time.Since(start),
			OK:         true,
			Detections: len(outcome.Detections),
		})
		return outcome.Detections, nil
	case <-ctx.Done():
		metrics.RecordDetectError()
		_ = store.Record(ctx, repository.Outcome{
			At:       time.Now(),
			Duration: time.Since(start),
		})
		return nil, ctx.Err()
	case <-time.After(timeout):
		metrics.RecordDetectError()
		_ = store.Record(ctx, repository.Outcome{
			At:       time.Now(),
			Duration: time.Since(start),
		})
		return nil, fmt.Errorf("awaiting task %s: %w", task.ID, ErrTimeout)
	}
}

// Stats returns the aggregate outcome snapshot for monitoring.
func (s *Service) Stats(ctx context.Context) (repository.Snapshot, error) {
	s.mu.RLock()
	started := s.started
	store := s.outcomes
	s.mu.RUnlock()

	if !started {
		return repository.Snapshot{}, ErrNotStarted
	}
	return store.Stats(ctx)
}

// RecentOutcomes returns up to n recent request outcomes, newest first.
func (s *Service) RecentOutcomes(ctx context.Context, n int) ([]repository.Outcome, error) {
	s.mu.RLock()
	started := s.started
	store := s.outcomes
	s.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}
	return store.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"windowSize":  s.windowSize,
	}

	if s.started {
		queueLen := s.taskQueue.Len(ctx)
		totalOutcomes := s.outcomes.Count(ctx)
		uptime := time.Since(s.startedAt).Seconds()

		stats["queueLength"] = queueLen
		stats["totalOutcomes"] = totalOutcomes
		stats["uptimeSeconds"] = uptime

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
		metrics.UpdateUptimeSeconds(uptime)
	}

	return stats
}
