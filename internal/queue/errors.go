package queue

import "errors"

var (
	// ErrNotClaimed means the conditional pending -> processing update matched no row.
	ErrNotClaimed = errors.New("job not claimable")
	// ErrJobNotFound means no record exists for the requested key.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition means a terminal write targeted a record in an incompatible state.
	ErrInvalidTransition = errors.New("invalid status transition")
)
