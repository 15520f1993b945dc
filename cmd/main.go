package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/atomdellow/autodesktop/internal/adapters/http/api"
	"github.com/atomdellow/autodesktop/internal/adapters/http/apidocs"
	app "github.com/atomdellow/autodesktop/internal/app"
	"github.com/atomdellow/autodesktop/internal/config"
	"github.com/atomdellow/autodesktop/pkg/logger"
	"github.com/atomdellow/autodesktop/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shirou/gopsutil/v3/process"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	processMetricsInterval = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	maxRecentOutcomes      = 100
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom process metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	loggerInstance.Info(ctx, "starting vision service",
		logger.String("addr", cfg.Addr),
		logger.Int("workerCount", cfg.WorkerCount),
		logger.Int("queueSize", cfg.QueueSize),
		logger.Int("statsWindowSize", cfg.StatsWindowSize),
		logger.String("weightsPath", cfg.WeightsPath),
	)

	// The stub detector carries its own fixed answers; the weights file is
	// advisory until a trained model is wired in, so a missing one only warns.
	if _, err := os.Stat(cfg.WeightsPath); err != nil {
		loggerInstance.Warn(ctx, "model weights not found; serving stub detections",
			logger.String("weightsPath", cfg.WeightsPath))
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithWindowSize(cfg.StatsWindowSize),
		app.WithDetectTimeout(time.Duration(cfg.DetectTimeoutMS)*time.Millisecond),
		app.WithDetectorLatencyRange(time.Duration(cfg.DetectorLatencyMinMS)*time.Millisecond, time.Duration(cfg.DetectorLatencyMaxMS)*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start process metrics updater
	if proc, err := process.NewProcess(int32(os.Getpid())); err != nil {
		loggerInstance.Warn(ctx, "process metrics unavailable", logger.Error(err))
	} else {
		go startProcessMetricsUpdater(ctx, proc)
	}

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register the API reference under /api-docs
	apidocs.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, maxRecentOutcomes)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startProcessMetricsUpdater starts a background goroutine that updates process metrics.
func startProcessMetricsUpdater(ctx context.Context, proc *process.Process) {
	ticker := time.NewTicker(processMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateProcessMetrics(proc)
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateProcessMetrics publishes resident memory, CPU, and goroutine gauges.
func updateProcessMetrics(proc *process.Process) {
	if memInfo, err := proc.MemoryInfo(); err == nil {
		metrics.UpdateProcessResidentBytes(memInfo.RSS)
	}

	if cpuPercent, err := proc.CPUPercent(); err == nil {
		metrics.UpdateProcessCPUPercent(cpuPercent)
	}

	metrics.UpdateGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	// Get current stats from the service
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}

	if uptime, ok := stats["uptimeSeconds"].(float64); ok {
		metrics.UpdateUptimeSeconds(uptime)
	}
}
