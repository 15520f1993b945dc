// Package trainer runs Ultralytics YOLO training as an external process.
package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/atomdellow/autodesktop/internal/training"
	"github.com/atomdellow/autodesktop/pkg/logger"
)

// Default trainer configuration constants.
const (
	defaultBinary = "yolo"

	// stopGracePeriod bounds how long a canceled run may outlive the
	// interrupt signal before the process is killed outright.
	stopGracePeriod = 10 * time.Second

	// tailCapacity is how much trailing backend output is retained for
	// failure reports.
	tailCapacity = 4 << 10
)

// UltralyticsTrainer implements training.Trainer by invoking the yolo CLI.
// The run is a single subprocess; epochs, checkpointing, and augmentation
// all happen inside the backend.
type UltralyticsTrainer struct {
	binary string
	stdout io.Writer
	stderr io.Writer

	// Logging
	logger logger.Logger
}

// NewUltralyticsTrainer creates a trainer with configuration options.
func NewUltralyticsTrainer(opts ...Option) *UltralyticsTrainer {
	t := &UltralyticsTrainer{
		binary: defaultBinary,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logger.Get().Named("trainer"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Train runs one full training pass and blocks until the backend exits.
// Backend output is streamed to the configured writers; on failure the
// returned error carries the last line of that output so callers can
// classify what went wrong.
func (t *UltralyticsTrainer) Train(ctx context.Context, cfg training.Config) error {
	args := buildArgs(cfg)
	t.logger.Info(ctx, "starting training run",
		logger.String("binary", t.binary),
		logger.String("device", cfg.Device.String()),
		logger.Int("epochs", cfg.Epochs),
		logger.String("data", cfg.DataYAML),
	)

	tail := newTailWriter(tailCapacity)
	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdout = io.MultiWriter(t.stdout, tail)
	cmd.Stderr = io.MultiWriter(t.stderr, tail)

	// Interrupt instead of kill on cancellation so the backend can flush
	// its checkpoint; WaitDelay escalates if it ignores the signal.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGracePeriod

	start := time.Now()
	if err := cmd.Run(); err != nil {
		t.logger.Error(ctx, "training run failed",
			logger.Error(err),
			logger.Duration("elapsed", time.Since(start)),
		)
		if msg := tail.LastLine(); msg != "" {
			return fmt.Errorf("%w: %s: %w", ErrTrainingRun, msg, err)
		}
		return fmt.Errorf("%w: %w", ErrTrainingRun, err)
	}

	t.logger.Info(ctx, "training run finished",
		logger.Duration("elapsed", time.Since(start)),
		logger.String("saveDir", cfg.SaveDir()),
	)
	return nil
}

// buildArgs renders cfg as yolo CLI key=value arguments. exist_ok keeps a
// rerun writing into the fixed run directory instead of minting a new one.
func buildArgs(cfg training.Config) []string {
	return []string{
		"detect", "train",
		"data=" + cfg.DataYAML,
		"model=" + cfg.BaseModel,
		fmt.Sprintf("epochs=%d", cfg.Epochs),
		fmt.Sprintf("batch=%d", cfg.BatchSize),
		fmt.Sprintf("imgsz=%d", cfg.ImageSize),
		"device=" + cfg.Device.String(),
		"project=" + cfg.Project,
		"name=" + cfg.Experiment,
		"exist_ok=True",
	}
}

// tailWriter retains the trailing bytes of everything written through it.
// stdout and stderr share one instance, so writes are locked.
type tailWriter struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailWriter(max int) *tailWriter {
	return &tailWriter{max: max}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if overflow := len(w.buf) - w.max; overflow > 0 {
		w.buf = w.buf[overflow:]
	}
	return len(p), nil
}

// LastLine returns the last non-empty line seen so far, trimmed.
func (w *tailWriter) LastLine() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	lines := strings.Split(string(w.buf), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
