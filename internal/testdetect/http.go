package testdetect

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// newClient builds a resty client with the configured total timeout.
func newClient(timeout time.Duration) *resty.Client {
	return resty.New().SetTimeout(timeout)
}

// submitRequests posts all payloads concurrently using a worker pool and
// returns one outcome per payload, index aligned.
func submitRequests(ctx context.Context, config *Config, payloads []Payload, stats *Stats) ([]Outcome, error) {
	log.Printf("📤 Submitting %d detect requests with %d workers...", len(payloads), config.Workers)

	client := newClient(config.Timeout)
	url := config.BaseURL + "/detect"

	// Results storage; workers write disjoint indices
	outcomes := make([]Outcome, len(payloads))

	// Counters for statistics
	var (
		successful int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcome := submitSinglePayload(ctx, client, url, payloads[index])
					outcomes[index] = outcome

					// Update counters
					atomic.AddInt64(&submitted, 1)
					if outcome.Err == nil && outcome.Status == StatusOK {
						atomic.AddInt64(&successful, 1)
					} else {
						atomic.AddInt64(&failed, 1)
						if config.Verbose && outcome.Err != nil {
							log.Printf("⚠️  Request %s failed: %v", outcome.ID, outcome.Err)
						}
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (success: %d, failed: %d)",
								total, len(payloads), succ, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (success: %d, failed: %d)",
								total, len(payloads), succ, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send payload indices to workers
	go func() {
		defer close(indexChan)
		for i := range payloads {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.RequestsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RequestsSuccessful = int(atomic.LoadInt64(&successful))
	stats.RequestsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Request submission completed:
   Successful: %d
   Failed: %d
`, stats.RequestsSuccessful, stats.RequestsFailed)

	return outcomes, nil
}

// submitSinglePayload posts one screenshot and captures the response.
func submitSinglePayload(ctx context.Context, client *resty.Client, url string, payload Payload) Outcome {
	var detResp DetectResponse

	start := time.Now()
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(DetectRequest{Screenshot: payload.Screenshot}).
		SetResult(&detResp).
		Post(url)
	latency := time.Since(start)

	if err != nil {
		return Outcome{ID: payload.ID, Latency: latency, Err: fmt.Errorf("request failed: %w", err)}
	}

	return Outcome{
		ID:       payload.ID,
		Status:   resp.StatusCode(),
		Response: detResp,
		Latency:  latency,
	}
}
