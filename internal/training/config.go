// Package training drives one configuration-bound training attempt: resolve
// the compiled-in run parameters, validate file preconditions, pick a compute
// device, and delegate to the training backend.
package training

import (
	"path/filepath"

	"github.com/atomdellow/autodesktop/internal/domain/device"
)

// Compiled-in run parameters. The launcher takes no command-line arguments;
// one run consumes exactly this configuration.
const (
	defaultBaseModel  = "yolov8n.pt"
	defaultEpochs     = 50
	defaultBatchSize  = 8
	defaultImageSize  = 640
	defaultProject    = "UI_Element_Detection"
	defaultExperiment = "run1"
)

// descriptorRelPath locates the dataset descriptor relative to the launcher
// executable, pointing into the sibling application checkout.
var descriptorRelPath = filepath.Join("..", "AutoDesktopApplication", "UI_Element_Dataset", "data.yaml")

// Config is the immutable bundle handed to the Trainer for one run.
type Config struct {
	DataYAML   string      // dataset descriptor path
	BaseModel  string      // starting weights, resolved against the working directory
	Epochs     int         // full passes over the dataset
	BatchSize  int         // images per step
	ImageSize  int         // square training resolution in pixels
	Project    string      // results directory name
	Experiment string      // run subdirectory under Project
	Device     device.Kind // compute backend selector, filled in by the launcher
}

// Resolve builds the default configuration. The descriptor path is anchored
// at exeDir so the launcher finds the dataset no matter where it is invoked
// from; the base model deliberately stays working-directory relative.
func Resolve(exeDir string) Config {
	return Config{
		DataYAML:   filepath.Join(exeDir, descriptorRelPath),
		BaseModel:  defaultBaseModel,
		Epochs:     defaultEpochs,
		BatchSize:  defaultBatchSize,
		ImageSize:  defaultImageSize,
		Project:    defaultProject,
		Experiment: defaultExperiment,
	}
}

// SaveDir returns the artifact directory the training backend writes into.
func (c Config) SaveDir() string {
	return filepath.Join(c.Project, c.Experiment)
}

// BestCheckpoint returns the conventional best-weights path under SaveDir.
func (c Config) BestCheckpoint() string {
	return filepath.Join(c.SaveDir(), "weights", "best.pt")
}
