package training

import "github.com/atomdellow/autodesktop/internal/domain/device"

// State identifies the terminal condition of one training attempt.
type State int

// Terminal states. A run ends in exactly one of them; there is no retry or
// resumption.
const (
	Succeeded State = iota
	PreconditionFailed
	TrainingFailed
)

// String returns the state name for report lines.
func (s State) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case PreconditionFailed:
		return "precondition_failed"
	case TrainingFailed:
		return "training_failed"
	default:
		return "unknown"
	}
}

// Result is the terminal report of a single training attempt. Which fields
// are populated depends on State.
type Result struct {
	State State

	// Succeeded
	SaveDir        string // artifact directory, <project>/<experiment>
	BestCheckpoint string // best weights path under SaveDir

	// PreconditionFailed
	Reason string // names the missing or broken input

	// TrainingFailed
	Message string // backend failure description
	OOMHint bool   // the message suggests memory exhaustion

	// Device carries the selected backend once probing has run.
	Device device.Kind

	// Err holds the underlying error for the failed states.
	Err error
}
