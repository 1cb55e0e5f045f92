// Package errors provides structured error types for layerpress.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the pipeline stages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into the pipeline's three failure classes:
//   - INVALID_*, PROBE_*, RESIZE_*, ENCODE_*: per-item or input problems
//   - SOURCE_NOT_FOUND: structural, a stage's input directory is unusable
//   - IO_FAILURE: fatal, the filesystem refused a write
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "output_quality %d out of range", q)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidRecord Code = "INVALID_RECORD"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Structural errors
	ErrCodeSourceNotFound Code = "SOURCE_NOT_FOUND"

	// Per-item image errors
	ErrCodeProbeFailed  Code = "PROBE_FAILED"
	ErrCodeResizeFailed Code = "RESIZE_FAILED"
	ErrCodeEncodeFailed Code = "ENCODE_FAILED"

	// Fatal errors
	ErrCodeIO Code = "IO_FAILURE"

	// External engine errors
	ErrCodeEngineFailed Code = "ENGINE_FAILED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface. A directly wrapped *Error with the
// same code is rendered without repeating the code.
func (e *Error) Error() string {
	if e.Cause != nil {
		if inner, ok := e.Cause.(*Error); ok && inner.Code == e.Code {
			return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, UserMessage(inner))
		}
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message followed by the cause, without code
// prefixes. For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if inner, ok := e.Cause.(*Error); ok {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(inner))
		}
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsStructural reports whether err is a structural or fatal failure, i.e. one
// that must abort the current stage instead of being recorded per item.
func IsStructural(err error) bool {
	switch GetCode(err) {
	case ErrCodeSourceNotFound, ErrCodeIO, ErrCodeInvalidConfig, ErrCodeEngineFailed:
		return true
	}
	return false
}
