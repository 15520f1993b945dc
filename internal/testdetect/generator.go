package testdetect

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/atomdellow/autodesktop/pkg/logger"
	"github.com/google/uuid"
)

// Screenshot size classes in bytes, spanning a thumbnail, a window capture,
// and a full desktop capture.
const (
	sizeThumbnail = 1 << 10
	sizeWindow    = 16 << 10
	sizeDesktop   = 64 << 10
)

// pngSignature is the eight-byte header every PNG file starts with.
var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// generatePayloads creates the specified number of synthetic screenshots
// with unique IDs.
func generatePayloads(ctx context.Context, config *Config, stats *Stats) ([]Payload, error) {
	logger.Get().Info(ctx, "generating synthetic screenshots", logger.Int("numRequests", config.NumRequests))

	payloads := make([]Payload, config.NumRequests)

	// Pre-allocate IDs so every payload stays traceable in logs and output
	ids := make([]string, config.NumRequests)
	for i := 0; i < config.NumRequests; i++ {
		ids[i] = uuid.New().String()
	}

	// Generate payloads concurrently
	type payloadResult struct {
		index   int
		payload Payload
		err     error
	}

	resultChan := make(chan payloadResult, config.NumRequests)

	// Use worker pool for payload generation
	workerCount := minInt(config.Workers, config.NumRequests)
	payloadsPerWorker := config.NumRequests / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * payloadsPerWorker
		end := start + payloadsPerWorker
		if worker == workerCount-1 {
			end = config.NumRequests // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- payloadResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- payloadResult{index: i, payload: generateSinglePayload(i, ids[i])}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumRequests; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during payload generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate payload %d: %w", result.index, result.err)
			}
			payloads[result.index] = result.payload
		}
	}

	stats.RequestsGenerated = len(payloads)
	logger.Get().Info(ctx, "generated payloads successfully", logger.Int("count", len(payloads)))

	return payloads, nil
}

// generateSinglePayload builds one base64 screenshot submission.
func generateSinglePayload(index int, id string) Payload {
	return Payload{
		ID:         id,
		Screenshot: base64.StdEncoding.EncodeToString(syntheticPNG(index, id)),
	}
}

// syntheticPNG renders a deterministic PNG-shaped byte blob. The service
// treats image bytes as opaque, so a real signature plus traceable filler
// exercises the wire path at realistic sizes.
func syntheticPNG(index int, id string) []byte {
	size := payloadSize(index)
	buf := make([]byte, 0, size)
	buf = append(buf, pngSignature...)
	buf = append(buf, []byte(id)...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(index)) //nolint:gosec // index is bounded by the request count
	for len(buf) < size {
		buf = append(buf, byte(index+len(buf)))
	}
	return buf[:size]
}

// payloadSize cycles through the size classes so one run covers small and
// large submissions.
func payloadSize(index int) int {
	switch index % 3 {
	case 0:
		return sizeThumbnail
	case 1:
		return sizeWindow
	default:
		return sizeDesktop
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
