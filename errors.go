package testlane

import (
	"errors"
	"fmt"
)

// RunError represents a fatal engine error: a panic escaping a
// fixture, a cancelled context, or a configuration problem. The run
// produced no summary.
type RunError struct {
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError
func NewRunError(err error) *RunError {
	return &RunError{Err: err}
}

// IsRunError checks if the error is or wraps a RunError
func IsRunError(err error) bool {
	var runErr *RunError
	return err != nil && errors.As(err, &runErr)
}

// FailureError represents a completed run whose summary contains
// assertion failures or errors.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewFailureError creates a new FailureError
func NewFailureError(message string) *FailureError {
	return &FailureError{Message: message}
}

// IsFailureError checks if the error is or wraps a FailureError
func IsFailureError(err error) bool {
	var failErr *FailureError
	return err != nil && errors.As(err, &failErr)
}
