package session

import "errors"

var (
	// ErrInvalidConfiguration is returned when a session is configured with a
	// non-positive question count or per-question duration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidOperation is returned when a state-changing call is made
	// outside the state it is valid in.
	ErrInvalidOperation = errors.New("invalid operation")
)
