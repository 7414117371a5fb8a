package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies errors surfaced to callers.
type ErrorCode string

const (
	ErrInvalidQuery        ErrorCode = "INVALID_QUERY"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrResourceUnavailable ErrorCode = "RESOURCE_UNAVAILABLE"
	ErrRoutingFailed       ErrorCode = "ROUTING_FAILED"
	ErrPipelineFailed      ErrorCode = "PIPELINE_FAILED"
	ErrCacheError          ErrorCode = "CACHE_ERROR"
	ErrInternal            ErrorCode = "INTERNAL"
)

// Error is a structured error with a code, message and optional cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// CodeOf extracts the error code from err, unwrapping as needed. Returns
// ErrInternal for errors that carry no code.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
