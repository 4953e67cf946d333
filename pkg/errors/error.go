// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, configuration and versions
//   - Auth errors (200-299): Missing or malformed credentials, detected at connector start
//   - Data errors (300-399): Stale snapshots and fill integrity violations
//   - Order errors (500-599): Rejections, non-cancelable and unknown orders
//   - Exchange errors (600-699): Transient network failures and Harbor request errors
//   - Event errors (800-899): Order event delivery failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeUnknownOrder, "unknown order %s", clientOrderID)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeStaleData, "market refresh failed", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeOrderNotCancelable) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
// The outermost coded error in the chain wins.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsAuthConfig reports whether err is an AuthConfigError.
func IsAuthConfig(err error) bool { return HasCode(err, ErrCodeAuthConfig) }

// IsStaleData reports whether err is a StaleDataWarning.
func IsStaleData(err error) bool { return HasCode(err, ErrCodeStaleData) }

// IsDataIntegrity reports whether err is a DataIntegrityError.
func IsDataIntegrity(err error) bool { return HasCode(err, ErrCodeDataIntegrity) }

// IsOrderRejected reports whether err is an OrderRejected error.
func IsOrderRejected(err error) bool { return HasCode(err, ErrCodeOrderRejected) }

// IsOrderNotCancelable reports whether err is an OrderNotCancelable error.
func IsOrderNotCancelable(err error) bool { return HasCode(err, ErrCodeOrderNotCancelable) }

// IsUnknownOrder reports whether err is an UnknownOrder error.
func IsUnknownOrder(err error) bool { return HasCode(err, ErrCodeUnknownOrder) }

// IsTransientNetwork reports whether err is a TransientNetworkError.
func IsTransientNetwork(err error) bool { return HasCode(err, ErrCodeTransientNetwork) }
