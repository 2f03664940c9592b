package form

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChoice is returned for unknown fields, fighters, rounds or timings
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrStepLocked is returned when a step is selected before the step it depends on
	ErrStepLocked = errors.New("step not available yet")
	// ErrNotReady is returned by Submit before round and timing are complete
	ErrNotReady = errors.New("prediction is not complete")
	// ErrSubmitInFlight is returned while a submission is outstanding
	ErrSubmitInFlight = errors.New("submission already in progress")
)

// ValidationError reports user input that blocks the next step
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// SubmitError wraps a failure of the send operation
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return "submit prediction: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
