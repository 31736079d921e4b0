package reconcile

import (
	"errors"
	"fmt"
)

// ErrCalculationFailed is returned for structurally invalid top-level input.
// Individual bad rows never produce it; they are skipped and counted.
var ErrCalculationFailed = errors.New("calculation failed")

// CalculationError describes why a whole pass could not run.
type CalculationError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *CalculationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *CalculationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CalculationError) Is(target error) bool {
	return target == ErrCalculationFailed
}

func newCalculationError(stage, message string, err error) *CalculationError {
	return &CalculationError{Stage: stage, Message: message, Err: err}
}
