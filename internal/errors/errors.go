// Package errors provides standardized domain errors with codes for the Cratestack API.
//
// Usage:
//
//	// In services - return typed errors
//	if token == "" {
//	    return errors.Auth("storefront access token is not configured")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrTransientFetch) {
//	    // keep partial results, stop fetching further pages
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	// CodeAuth marks a missing or rejected access credential. Fatal for a
	// whole enhancement run; never retried.
	CodeAuth Code = "AUTH"
	// CodeTransientFetch marks a network or HTTP failure mid-pagination.
	// Aborts further fetching but already-fetched pages are kept.
	CodeTransientFetch Code = "TRANSIENT_FETCH"
	// CodeRenderItem marks a single card that failed to materialize.
	// Logged and skipped, never fatal to a batch.
	CodeRenderItem Code = "RENDER_ITEM"
	// CodeGroupInvariant marks an internal grouping assertion failure.
	// A logic defect: surfaced in tests, logged in production.
	CodeGroupInvariant Code = "GROUP_INVARIANT"
	// CodeInterrupted marks a run cancelled by a newer run.
	CodeInterrupted Code = "INTERRUPTED"

	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeInternal   Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTransientFetch:
		return http.StatusBadGateway
	case CodeInterrupted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrAuth           = &Error{Code: CodeAuth, Message: "authentication failed"}
	ErrTransientFetch = &Error{Code: CodeTransientFetch, Message: "transient fetch failure"}
	ErrRenderItem     = &Error{Code: CodeRenderItem, Message: "render item failed"}
	ErrGroupInvariant = &Error{Code: CodeGroupInvariant, Message: "grouping invariant violated"}
	ErrInterrupted    = &Error{Code: CodeInterrupted, Message: "run interrupted"}
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// Auth creates an authentication error.
func Auth(msg string) *Error {
	return &Error{Code: CodeAuth, Message: msg}
}

// Authf creates an authentication error with formatted message.
func Authf(format string, args ...any) *Error {
	return &Error{Code: CodeAuth, Message: fmt.Sprintf(format, args...)}
}

// TransientFetch creates a transient fetch error.
func TransientFetch(msg string) *Error {
	return &Error{Code: CodeTransientFetch, Message: msg}
}

// TransientFetchf creates a transient fetch error with formatted message.
func TransientFetchf(format string, args ...any) *Error {
	return &Error{Code: CodeTransientFetch, Message: fmt.Sprintf(format, args...)}
}

// RenderItem creates a per-card render error.
func RenderItem(msg string) *Error {
	return &Error{Code: CodeRenderItem, Message: msg}
}

// RenderItemf creates a per-card render error with formatted message.
func RenderItemf(format string, args ...any) *Error {
	return &Error{Code: CodeRenderItem, Message: fmt.Sprintf(format, args...)}
}

// GroupInvariant creates a grouping invariant violation error.
func GroupInvariant(msg string) *Error {
	return &Error{Code: CodeGroupInvariant, Message: msg}
}

// GroupInvariantf creates a grouping invariant violation with formatted message.
func GroupInvariantf(format string, args ...any) *Error {
	return &Error{Code: CodeGroupInvariant, Message: fmt.Sprintf(format, args...)}
}

// Interrupted creates an interrupted-run error.
func Interrupted(msg string) *Error {
	return &Error{Code: CodeInterrupted, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
