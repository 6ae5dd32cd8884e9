package operations

import (
	"errors"
	"fmt"
)

// StageError wraps a stage failure with the stage that produced it, so the
// halting stage survives through error chains to the CLI and HTTP surfaces.
type StageError struct {
	Stage   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error { return e.Cause }

// NewStageError wraps a stage failure.
func NewStageError(stage, message string, cause error) *StageError {
	return &StageError{Stage: stage, Message: message, Cause: cause}
}

// FailingStageID extracts the stage ID from an error chain, or "".
func FailingStageID(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
