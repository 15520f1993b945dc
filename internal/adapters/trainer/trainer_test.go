package trainer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/atomdellow/autodesktop/internal/domain/device"
	"github.com/atomdellow/autodesktop/internal/training"
	"github.com/atomdellow/autodesktop/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// writeScript installs a fake yolo binary that runs body under /bin/sh.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake backend needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yolo")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { //nolint:gosec // script must be executable
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func testConfig() training.Config {
	cfg := training.Resolve("/opt/autodesktop")
	cfg.Device = device.CPU
	return cfg
}

func TestUltralyticsTrainerTrain(t *testing.T) {
	convey.Convey("Given a backend that succeeds", t, func() {
		argsFile := filepath.Join(t.TempDir(), "args")
		bin := writeScript(t, `printf '%s\n' "$@" > "`+argsFile+`"
echo "Training complete"`)

		var stdout, stderr bytes.Buffer
		tr := NewUltralyticsTrainer(WithBinary(bin), WithOutput(&stdout, &stderr))

		convey.Convey("When training runs", func() {
			err := tr.Train(context.Background(), testConfig())

			convey.Convey("Then it should finish cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "Training complete")
			})

			convey.Convey("And the backend should receive the full argument set", func() {
				raw, readErr := os.ReadFile(argsFile)
				convey.So(readErr, convey.ShouldBeNil)

				got := strings.Split(strings.TrimSpace(string(raw)), "\n")
				convey.So(got, convey.ShouldResemble, buildArgs(testConfig()))
			})
		})
	})

	convey.Convey("Given a backend that runs out of memory", t, func() {
		bin := writeScript(t, `echo "RuntimeError: CUDA out of memory. Tried to allocate 2.00 GiB" >&2
exit 1`)
		var stdout, stderr bytes.Buffer
		tr := NewUltralyticsTrainer(WithBinary(bin), WithOutput(&stdout, &stderr))

		convey.Convey("When training runs", func() {
			err := tr.Train(context.Background(), testConfig())

			convey.Convey("Then the error should carry the backend's message", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, ErrTrainingRun), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "out of memory")
			})
		})
	})

	convey.Convey("Given a backend that fails without output", t, func() {
		bin := writeScript(t, `exit 3`)
		var stdout, stderr bytes.Buffer
		tr := NewUltralyticsTrainer(WithBinary(bin), WithOutput(&stdout, &stderr))

		convey.Convey("When training runs", func() {
			err := tr.Train(context.Background(), testConfig())

			convey.Convey("Then the error should still identify the run", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, ErrTrainingRun), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "exit status 3")
			})
		})
	})

	convey.Convey("Given a backend that never finishes", t, func() {
		bin := writeScript(t, `exec sleep 30`)
		var stdout, stderr bytes.Buffer
		tr := NewUltralyticsTrainer(WithBinary(bin), WithOutput(&stdout, &stderr))

		convey.Convey("When the run is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(100 * time.Millisecond)
				cancel()
			}()

			start := time.Now()
			err := tr.Train(ctx, testConfig())
			elapsed := time.Since(start)

			convey.Convey("Then it should stop promptly with the cancellation", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(elapsed, convey.ShouldBeLessThan, 5*time.Second)
			})
		})
	})

	convey.Convey("Given a binary that does not exist", t, func() {
		tr := NewUltralyticsTrainer(WithBinary(filepath.Join(t.TempDir(), "missing")))

		convey.Convey("When training runs", func() {
			err := tr.Train(context.Background(), testConfig())

			convey.Convey("Then startup failure should surface as a run failure", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, ErrTrainingRun), convey.ShouldBeTrue)
			})
		})
	})
}

func TestBuildArgs(t *testing.T) {
	convey.Convey("Given a resolved configuration on cuda", t, func() {
		cfg := training.Config{
			DataYAML:   "/data/data.yaml",
			BaseModel:  "yolov8n.pt",
			Epochs:     50,
			BatchSize:  8,
			ImageSize:  640,
			Project:    "UI_Element_Detection",
			Experiment: "run1",
			Device:     device.CUDA,
		}

		convey.Convey("When arguments are built", func() {
			got := buildArgs(cfg)

			convey.Convey("Then every parameter should be present in CLI form", func() {
				convey.So(got, convey.ShouldResemble, []string{
					"detect", "train",
					"data=/data/data.yaml",
					"model=yolov8n.pt",
					"epochs=50",
					"batch=8",
					"imgsz=640",
					"device=cuda",
					"project=UI_Element_Detection",
					"name=run1",
					"exist_ok=True",
				})
			})
		})
	})
}

func TestTailWriter(t *testing.T) {
	convey.Convey("Given a tail writer with a small capacity", t, func() {
		w := newTailWriter(16)

		convey.Convey("When more than the capacity is written", func() {
			_, err := w.Write([]byte("first line that overflows\n"))
			convey.So(err, convey.ShouldBeNil)
			_, err = w.Write([]byte("kept\n"))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then only the trailing bytes should remain", func() {
				convey.So(len(w.buf), convey.ShouldBeLessThanOrEqualTo, 16)
				convey.So(w.LastLine(), convey.ShouldEqual, "kept")
			})
		})

		convey.Convey("When trailing blank lines are written", func() {
			_, err := w.Write([]byte("message\n\n  \n"))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the last non-empty line should win", func() {
				convey.So(w.LastLine(), convey.ShouldEqual, "message")
			})
		})

		convey.Convey("When nothing has been written", func() {
			convey.Convey("Then the last line should be empty", func() {
				convey.So(w.LastLine(), convey.ShouldEqual, "")
			})
		})
	})
}
