package training

import (
	"context"
	"strings"

	"github.com/atomdellow/autodesktop/internal/domain/device"
	"github.com/atomdellow/autodesktop/pkg/logger"
)

// Trainer runs one full training pass with the given configuration. The run
// is opaque and potentially hours long; implementations must honor ctx.
type Trainer interface {
	Train(ctx context.Context, cfg Config) error
}

// Option applies a configuration option to the Launcher.
type Option func(*Launcher)

// WithProbes overrides the device capability probes.
func WithProbes(probes []device.Probe) Option {
	return func(l *Launcher) {
		if len(probes) > 0 {
			l.probes = probes
		}
	}
}

// WithLogger sets a custom logger for the launcher.
func WithLogger(log logger.Logger) Option {
	return func(l *Launcher) {
		if log != nil {
			l.logger = log
		}
	}
}

// Launcher drives a single training attempt through precondition checks,
// device selection, and delegation to the Trainer.
type Launcher struct {
	cfg     Config
	trainer Trainer
	probes  []device.Probe
	logger  logger.Logger
}

// NewLauncher creates a launcher for one run of cfg through trainer.
func NewLauncher(cfg Config, trainer Trainer, opts ...Option) *Launcher {
	l := &Launcher{
		cfg:     cfg,
		trainer: trainer,
		probes:  device.DefaultProbes(),
		logger:  logger.Get().Named("training"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run executes the single training attempt and reports its terminal state.
// Failures are values, not panics: broken inputs come back as
// PreconditionFailed and backend faults as TrainingFailed.
func (l *Launcher) Run(ctx context.Context) Result {
	if l.trainer == nil {
		return Result{State: TrainingFailed, Message: ErrNoTrainer.Error(), Err: ErrNoTrainer}
	}

	if err := checkPreconditions(l.cfg); err != nil {
		l.logger.Error(ctx, "precondition check failed", logger.Error(err))
		return Result{State: PreconditionFailed, Reason: err.Error(), Err: err}
	}

	desc, err := ParseDescriptor(l.cfg.DataYAML)
	if err != nil {
		l.logger.Error(ctx, "descriptor rejected", logger.Error(err))
		return Result{State: PreconditionFailed, Reason: err.Error(), Err: err}
	}
	l.logger.Info(ctx, "dataset descriptor loaded",
		logger.String("path", l.cfg.DataYAML),
		logger.Int("classes", desc.ClassCount()),
		logger.Any("names", []string(desc.Names)))

	cfg := l.cfg
	cfg.Device = device.Select(l.probes)
	l.logger.Info(ctx, "selected training device", logger.String("device", cfg.Device.String()))

	if err := l.trainer.Train(ctx, cfg); err != nil {
		msg := err.Error()
		return Result{
			State:   TrainingFailed,
			Message: msg,
			OOMHint: isOutOfMemory(msg),
			Device:  cfg.Device,
			Err:     err,
		}
	}

	return Result{
		State:          Succeeded,
		SaveDir:        cfg.SaveDir(),
		BestCheckpoint: cfg.BestCheckpoint(),
		Device:         cfg.Device,
	}
}

// Config returns the resolved configuration the launcher will run.
func (l *Launcher) Config() Config {
	return l.cfg
}

// isOutOfMemory reports whether a failure description suggests memory
// exhaustion. String matching is what the backend leaves us; it emits no
// structured error codes.
func isOutOfMemory(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "out of memory")
}
