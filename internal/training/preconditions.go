package training

import (
	"fmt"
	"os"
)

// checkPreconditions verifies the cheap file preconditions before any
// expensive work starts. The first failing check wins; the base model is
// checked before the descriptor, matching the report order users see.
func checkPreconditions(cfg Config) error {
	if _, err := os.Stat(cfg.BaseModel); err != nil {
		return fmt.Errorf("%w: %s", ErrBaseModelMissing, cfg.BaseModel)
	}
	if _, err := os.Stat(cfg.DataYAML); err != nil {
		return fmt.Errorf("%w: %s", ErrDescriptorMissing, cfg.DataYAML)
	}
	return nil
}
