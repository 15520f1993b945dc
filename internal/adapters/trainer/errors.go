package trainer

import "errors"

// Sentinel kinds for trainer errors.
var (
	ErrTrainingRun = errors.New("training run failed")
)
