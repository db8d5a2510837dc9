package errors

import (
	"errors"
	"fmt"
)

// AppError is the structured error type used throughout the system. It
// carries a stable machine-readable Code alongside a human message and an
// optional wrapped cause, so callers can branch on Code instead of
// matching error strings.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code, message, and optional cause.
func New(code string, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Wrap attaches a message to an existing error without a stable code. Used
// for ambient plumbing (config loading, telemetry setup) where the caller
// does not need to branch on the failure kind, only log and propagate it.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Code returns the AppError code carried by err, or "" if err is not (or
// does not wrap) an *AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given AppError code anywhere in its
// chain.
func Is(err error, code string) bool {
	return Code(err) == code
}
