// Package fault defines the typed pipeline error taxonomy. It sits below
// every other package so that the table codec and the domain contracts can
// both raise coded errors without importing each other.
package fault

import (
	"errors"
	"fmt"
)

// Code classifies pipeline failures. Table-level defects abort the running
// stage; row-level defects are recovered by dropping and are counted in the
// CleanReport instead of being raised.
type Code string

const (
	CodeSourceUnavailable Code = "source_unavailable"
	CodeEmptyResult       Code = "empty_result"
	CodeInvalidSchema     Code = "invalid_schema"
	CodeUnknownColumn     Code = "unknown_column"
	CodeUnsupportedFormat Code = "unsupported_format"
)

// Error is a typed pipeline error carrying a stable code that callers and
// the pipeline runner can branch on.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New creates a typed pipeline error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed pipeline error around a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the error code of err, or "" if err carries none.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
