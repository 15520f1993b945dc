// Package trainer runs Ultralytics YOLO training as an external process.
package trainer

import (
	"io"

	"github.com/atomdellow/autodesktop/pkg/logger"
)

// Option applies a configuration option to the UltralyticsTrainer.
type Option func(*UltralyticsTrainer)

// WithBinary overrides the name or path of the training CLI binary.
func WithBinary(binary string) Option {
	return func(t *UltralyticsTrainer) {
		if binary != "" {
			t.binary = binary
		}
	}
}

// WithOutput redirects the backend's output streams. Progress reporting is
// the backend's own; it is streamed through rather than parsed.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(t *UltralyticsTrainer) {
		if stdout != nil {
			t.stdout = stdout
		}
		if stderr != nil {
			t.stderr = stderr
		}
	}
}

// WithLogger sets a custom logger for the trainer.
func WithLogger(log logger.Logger) Option {
	return func(t *UltralyticsTrainer) {
		if log != nil {
			t.logger = log
		}
	}
}
