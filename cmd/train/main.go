package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/atomdellow/autodesktop/internal/adapters/trainer"
	"github.com/atomdellow/autodesktop/internal/training"
	"github.com/atomdellow/autodesktop/pkg/logger"
)

func main() {
	os.Exit(run())
}

// run keeps os.Exit out of the way of deferred cleanup.
func run() int {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM so an interrupted run
	// reaches the backend as a clean stop.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The dataset descriptor is anchored at the executable's directory;
	// the base model stays working-directory relative.
	exe, err := os.Executable()
	if err != nil {
		os.Stderr.WriteString("failed to locate executable: " + err.Error() + "\n")
		return 1
	}

	cfg := training.Resolve(filepath.Dir(exe))
	printConfig(os.Stdout, cfg)

	launcher := training.NewLauncher(cfg, trainer.NewUltralyticsTrainer())
	res := launcher.Run(ctx)

	return report(os.Stdout, res)
}

// printConfig echoes the compiled-in run parameters before any work starts.
// There are no command-line arguments; one run consumes exactly this set.
func printConfig(w io.Writer, cfg training.Config) {
	fmt.Fprintln(w, "Starting training with the following configuration:")
	fmt.Fprintf(w, "  Data YAML: %s\n", cfg.DataYAML)
	fmt.Fprintf(w, "  Base Model: %s\n", cfg.BaseModel)
	fmt.Fprintf(w, "  Epochs: %d\n", cfg.Epochs)
	fmt.Fprintf(w, "  Batch Size: %d\n", cfg.BatchSize)
	fmt.Fprintf(w, "  Image Size: %d\n", cfg.ImageSize)
	fmt.Fprintf(w, "  Project: %s\n", cfg.Project)
	fmt.Fprintf(w, "  Experiment: %s\n", cfg.Experiment)
}

// report prints the terminal state of the run and maps it to the process
// exit code: 0 for success, 1 for both failure classes.
func report(w io.Writer, res training.Result) int {
	switch res.State {
	case training.Succeeded:
		fmt.Fprintln(w, "Training completed!")
		fmt.Fprintf(w, "Results saved to: %s\n", res.SaveDir)
		fmt.Fprintf(w, "The best model is saved as: %s\n", res.BestCheckpoint)
		fmt.Fprintf(w, "Device used: %s\n", res.Device)
		fmt.Fprintln(w, "You can now point the vision service at this best.pt for inference.")
		return 0

	case training.PreconditionFailed:
		fmt.Fprintf(w, "Error: %s\n", res.Reason)
		if errors.Is(res.Err, training.ErrBaseModelMissing) {
			if wd, err := os.Getwd(); err == nil {
				fmt.Fprintf(w, "Place the base model in the working directory (%s) before rerunning.\n", wd)
			}
		} else {
			fmt.Fprintln(w, "Please verify the dataset descriptor path before rerunning.")
		}
		return 1

	default:
		fmt.Fprintf(w, "An error occurred during training: %s\n", res.Message)
		fmt.Fprintln(w, "Please check your dataset, configuration, and environment.")
		if res.OOMHint {
			fmt.Fprintln(w, "Suggestion: Try reducing the batch size or image size if you encountered an out-of-memory error.")
		}
		return 1
	}
}
