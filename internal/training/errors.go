package training

import "errors"

// Sentinel errors for the launcher pipeline.
var (
	ErrBaseModelMissing  = errors.New("base model not found")
	ErrDescriptorMissing = errors.New("dataset descriptor not found")
	ErrDescriptorInvalid = errors.New("dataset descriptor invalid")
	ErrNoTrainer         = errors.New("no trainer configured")
)
