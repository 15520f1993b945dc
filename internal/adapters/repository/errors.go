package repository

import "errors"

// Sentinel kinds for outcome store errors.
var (
	ErrInvalidLimit = errors.New("invalid recent limit")
	ErrClosed       = errors.New("outcome store closed")
)
