// Package errors provides unified error handling with structured error codes
// shared across the capture core and its surrounding CLI/server layers.
package errors

import "fmt"

// Code classifies an error for propagation policy decisions.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInternal           Code = "INTERNAL"
	CodeConfigInvalid      Code = "CONFIG_INVALID"
	CodeCaptureUnavailable Code = "CAPTURE_UNAVAILABLE"
	CodeComparatorInit     Code = "COMPARATOR_INIT_FAILED"
	CodeCompareFailed      Code = "COMPARE_FAILED"
	CodeExportFailed       Code = "EXPORT_FAILED"
	CodeEmbedUnavailable   Code = "EMBED_UNAVAILABLE"
	CodeCancelled          Code = "CANCELLED"
)

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error carries a specific error code, unwrapping as needed.
func IsCode(err error, code Code) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code == code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
// Only a transiently unreachable embedding sidecar qualifies; capture and
// configuration failures never do.
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Code == CodeEmbedUnavailable
}
