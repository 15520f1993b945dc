package training_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomdellow/autodesktop/internal/domain/device"
	"github.com/atomdellow/autodesktop/internal/training"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeTrainer records the delegated configuration and answers with a fixed
// error.
type fakeTrainer struct {
	err    error
	calls  int
	gotCfg training.Config
}

func (t *fakeTrainer) Train(_ context.Context, cfg training.Config) error {
	t.calls++
	t.gotCfg = cfg
	return t.err
}

func probesFor(cuda, mps bool) []device.Probe {
	return []device.Probe{
		{Kind: device.CUDA, Available: func() bool { return cuda }},
		{Kind: device.MPS, Available: func() bool { return mps }},
		{Kind: device.CPU, Available: func() bool { return true }},
	}
}

const validDescriptor = `train: images/train
val: images/val
nc: 3
names: ["button", "text_input", "scrollbar"]
`

// runConfig lays out a run directory with the requested input files present
// and returns a configuration pointing into it.
func runConfig(t *testing.T, withModel, withDescriptor bool) training.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := training.Resolve(dir)
	cfg.BaseModel = filepath.Join(dir, "yolov8n.pt")
	cfg.DataYAML = filepath.Join(dir, "data.yaml")
	if withModel {
		if err := os.WriteFile(cfg.BaseModel, []byte("weights"), 0o600); err != nil {
			t.Fatalf("writing model: %v", err)
		}
	}
	if withDescriptor {
		if err := os.WriteFile(cfg.DataYAML, []byte(validDescriptor), 0o600); err != nil {
			t.Fatalf("writing descriptor: %v", err)
		}
	}
	return cfg
}

func TestLauncherPreconditions(t *testing.T) {
	Convey("Given a run whose base model is absent", t, func() {
		cfg := runConfig(t, false, true)
		trainer := &fakeTrainer{}
		launcher := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(false, false)))

		Convey("When running", func() {
			res := launcher.Run(context.Background())

			Convey("Then it should stop before training", func() {
				So(res.State, ShouldEqual, training.PreconditionFailed)
				So(errors.Is(res.Err, training.ErrBaseModelMissing), ShouldBeTrue)
				So(res.Reason, ShouldContainSubstring, cfg.BaseModel)
				So(trainer.calls, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a run whose descriptor is absent despite a present model", t, func() {
		cfg := runConfig(t, true, false)
		trainer := &fakeTrainer{}
		launcher := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(true, false)))

		Convey("When running", func() {
			res := launcher.Run(context.Background())

			Convey("Then it should stop before training", func() {
				So(res.State, ShouldEqual, training.PreconditionFailed)
				So(errors.Is(res.Err, training.ErrDescriptorMissing), ShouldBeTrue)
				So(res.Reason, ShouldContainSubstring, cfg.DataYAML)
				So(trainer.calls, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a run whose descriptor does not parse", t, func() {
		cfg := runConfig(t, true, false)
		So(os.WriteFile(cfg.DataYAML, []byte("{{{ not yaml"), 0o600), ShouldBeNil)
		trainer := &fakeTrainer{}
		launcher := training.NewLauncher(cfg, trainer)

		Convey("When running", func() {
			res := launcher.Run(context.Background())

			Convey("Then it should stop before training", func() {
				So(res.State, ShouldEqual, training.PreconditionFailed)
				So(errors.Is(res.Err, training.ErrDescriptorInvalid), ShouldBeTrue)
				So(trainer.calls, ShouldEqual, 0)
			})
		})
	})
}

func TestLauncherDeviceSelection(t *testing.T) {
	Convey("Given a valid run directory", t, func() {
		cfg := runConfig(t, true, true)

		Convey("When an NVIDIA GPU is visible", func() {
			trainer := &fakeTrainer{}
			res := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(true, true))).Run(context.Background())

			Convey("Then training should run on cuda", func() {
				So(res.State, ShouldEqual, training.Succeeded)
				So(trainer.gotCfg.Device, ShouldEqual, device.CUDA)
			})
		})

		Convey("When only Apple silicon is visible", func() {
			trainer := &fakeTrainer{}
			res := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(false, true))).Run(context.Background())

			Convey("Then training should run on mps", func() {
				So(res.State, ShouldEqual, training.Succeeded)
				So(trainer.gotCfg.Device, ShouldEqual, device.MPS)
			})
		})

		Convey("When no accelerator is visible", func() {
			trainer := &fakeTrainer{}
			res := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(false, false))).Run(context.Background())

			Convey("Then training should fall back to cpu", func() {
				So(res.State, ShouldEqual, training.Succeeded)
				So(trainer.gotCfg.Device, ShouldEqual, device.CPU)
			})
		})
	})
}

func TestLauncherRun(t *testing.T) {
	Convey("Given a valid run directory", t, func() {
		cfg := runConfig(t, true, true)

		Convey("When training succeeds", func() {
			trainer := &fakeTrainer{}
			launcher := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(false, false)))
			res := launcher.Run(context.Background())

			Convey("Then the result should carry the artifact paths", func() {
				So(res.State, ShouldEqual, training.Succeeded)
				So(res.SaveDir, ShouldEqual, filepath.Join("UI_Element_Detection", "run1"))
				So(res.BestCheckpoint, ShouldEqual, filepath.Join("UI_Element_Detection", "run1", "weights", "best.pt"))
				So(res.Err, ShouldBeNil)
			})

			Convey("And the trainer should have seen the full configuration", func() {
				So(trainer.calls, ShouldEqual, 1)
				So(trainer.gotCfg.Epochs, ShouldEqual, 50)
				So(trainer.gotCfg.BatchSize, ShouldEqual, 8)
				So(trainer.gotCfg.ImageSize, ShouldEqual, 640)
				So(trainer.gotCfg.DataYAML, ShouldEqual, cfg.DataYAML)
				So(trainer.gotCfg.BaseModel, ShouldEqual, cfg.BaseModel)
			})
		})

		Convey("When training fails with a memory exhaustion message", func() {
			trainer := &fakeTrainer{err: errors.New("RuntimeError: CUDA out of memory. Tried to allocate 2.00 GiB")}
			res := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(true, false))).Run(context.Background())

			Convey("Then the result should carry the remediation hint", func() {
				So(res.State, ShouldEqual, training.TrainingFailed)
				So(res.Message, ShouldContainSubstring, "out of memory")
				So(res.OOMHint, ShouldBeTrue)
			})
		})

		Convey("When training fails with an uppercase memory message", func() {
			trainer := &fakeTrainer{err: errors.New("backend aborted: OUT OF MEMORY")}
			res := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(false, false))).Run(context.Background())

			Convey("Then matching should be case insensitive", func() {
				So(res.State, ShouldEqual, training.TrainingFailed)
				So(res.OOMHint, ShouldBeTrue)
			})
		})

		Convey("When training fails for another reason", func() {
			trainer := &fakeTrainer{err: errors.New("dataset images unreadable")}
			res := training.NewLauncher(cfg, trainer, training.WithProbes(probesFor(false, false))).Run(context.Background())

			Convey("Then no hint should be attached", func() {
				So(res.State, ShouldEqual, training.TrainingFailed)
				So(res.Message, ShouldEqual, "dataset images unreadable")
				So(res.OOMHint, ShouldBeFalse)
			})
		})

		Convey("When no trainer is wired", func() {
			res := training.NewLauncher(cfg, nil).Run(context.Background())

			Convey("Then the run should fail without side effects", func() {
				So(res.State, ShouldEqual, training.TrainingFailed)
				So(errors.Is(res.Err, training.ErrNoTrainer), ShouldBeTrue)
			})
		})
	})
}

func TestLauncherConfig(t *testing.T) {
	Convey("Given a launcher", t, func() {
		cfg := training.Resolve(t.TempDir())
		launcher := training.NewLauncher(cfg, &fakeTrainer{})

		Convey("Then it should expose its resolved configuration", func() {
			So(launcher.Config(), ShouldResemble, cfg)
		})
	})
}

func TestStateString(t *testing.T) {
	Convey("Given the terminal states", t, func() {
		Convey("Then each should render its report name", func() {
			So(training.Succeeded.String(), ShouldEqual, "succeeded")
			So(training.PreconditionFailed.String(), ShouldEqual, "precondition_failed")
			So(training.TrainingFailed.String(), ShouldEqual, "training_failed")
			So(training.State(99).String(), ShouldEqual, "unknown")
		})
	})
}
