package testdetect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/atomdellow/autodesktop/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete detect smoke test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting detect smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.NumRequests),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("skipVerify", config.SkipVerify),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate synthetic screenshots
	payloads, err := generatePayloads(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("payload generation failed: %w", err)
	}

	// Step 3: Submit requests concurrently
	outcomes, err := submitRequests(ctx, config, payloads, stats)
	if err != nil {
		return fmt.Errorf("request submission failed: %w", err)
	}

	// Step 4: Verify the response contract
	if !config.SkipVerify {
		if err := verifyResults(ctx, config, outcomes, stats); err != nil {
			return fmt.Errorf("result verification failed: %w", err)
		}
	}

	// Step 5: Save payloads to file
	if err := savePayloadsToFile(ctx, config, payloads); err != nil {
		logger.Get().Warn(ctx, "failed to save payloads to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats, outcomes)

	logger.Get().Info(ctx, "smoke test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running before loading it.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newClient(config.Timeout)
	resp, err := client.R().SetContext(ctx).Get(config.BaseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}

	if resp.StatusCode() != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode())
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePayloadsToFile saves the generated payloads to a JSON file so a run
// can be replayed or inspected.
func savePayloadsToFile(ctx context.Context, config *Config, payloads []Payload) error {
	if len(payloads) == 0 {
		return fmt.Errorf("no payloads to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_payloads_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write payloads to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, payload := range payloads {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write payload %d: %w", i, err)
		}

		// Add comma except for last payload
		if i < len(payloads)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "payloads saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics together with the
// latency profile of completed requests.
func displayFinalStats(stats *Stats, outcomes []Outcome) {
	var successRate, requestsPerSecond float64

	if stats.RequestsSubmitted > 0 {
		successRate = float64(stats.RequestsSuccessful) / float64(stats.RequestsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsSubmitted) / stats.Duration.Seconds()
	}

	avgMS, p95MS, maxMS := latencyProfile(outcomes)

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("requestsGenerated", stats.RequestsGenerated),
		logger.Int("requestsSubmitted", stats.RequestsSubmitted),
		logger.Int("requestsSuccessful", stats.RequestsSuccessful),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("contractViolations", stats.ContractViolations),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond),
		logger.Float64("avgLatencyMS", avgMS),
		logger.Float64("p95LatencyMS", p95MS),
		logger.Float64("maxLatencyMS", maxMS))
}

// latencyProfile computes average, p95, and maximum latency in milliseconds
// across requests that completed.
func latencyProfile(outcomes []Outcome) (avgMS, p95MS, maxMS float64) {
	durations := make([]float64, 0, len(outcomes))
	for i := range outcomes {
		if outcomes[i].Err == nil {
			durations = append(durations, float64(outcomes[i].Latency.Microseconds())/1000.0)
		}
	}
	if len(durations) == 0 {
		return 0, 0, 0
	}

	sort.Float64s(durations)
	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	avgMS = sum / float64(len(durations))
	p95MS = durations[int(float64(len(durations)-1)*0.95)]
	maxMS = durations[len(durations)-1]
	return avgMS, p95MS, maxMS
}
