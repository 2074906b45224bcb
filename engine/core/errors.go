package core

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Source errors
	ErrorCodeQueryFailed       ErrorCode = "QUERY_FAILED"
	ErrorCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrorCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// Assistant errors
	ErrorCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// Tool errors
	ErrorCodeUnknownTool ErrorCode = "UNKNOWN_TOOL"
	ErrorCodeToolFailed  ErrorCode = "TOOL_FAILED"

	// Configuration errors
	ErrorCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrorCodeConfigWrite   ErrorCode = "CONFIG_WRITE_FAILED"

	// Validation errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Runtime errors
	ErrorCodePanicRecovered     ErrorCode = "PANIC_RECOVERED"
	ErrorCodeMaxRetriesExceeded ErrorCode = "MAX_RETRIES_EXCEEDED"
)

// Error represents a structured error with code and metadata
type Error struct {
	Err      error          `json:"error"`
	Code     ErrorCode      `json:"code"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewError creates a new structured error for domain boundaries
func NewError(err error, code ErrorCode, metadata map[string]any) *Error {
	return &Error{
		Err:      err,
		Code:     code,
		Metadata: metadata,
	}
}

// InvalidInput is a shorthand for parameter validation failures
func InvalidInput(format string, args ...any) *Error {
	return NewError(fmt.Errorf(format, args...), ErrorCodeInvalidInput, nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if len(e.Metadata) > 0 {
		return fmt.Sprintf("[%s] %v (metadata: %v)", e.Code, e.Err, e.Metadata)
	}
	return fmt.Sprintf("[%s] %v", e.Code, e.Err)
}

// Message returns the wrapped error text without code or metadata
func (e *Error) Message() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// CodeOf returns the code of the outermost structured error in the chain,
// or an empty code when err carries none.
func CodeOf(err error) ErrorCode {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}

// HasCode reports whether any structured error in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// MessageOf returns a human readable message for err, unwrapping the
// outermost structured error.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Message()
	}
	return err.Error()
}
