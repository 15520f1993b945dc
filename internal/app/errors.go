package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrQueueFull  = errors.New("detect queue full")
	ErrTimeout    = errors.New("detect timed out")
)
