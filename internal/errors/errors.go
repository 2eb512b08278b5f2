// Package errors defines the coded domain errors returned by Booklog services.
//
// Services return these errors; the API layer turns them into HTTP responses
// through Code.HTTPStatus:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // 404
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions so callers need a single import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is a machine-readable error code.
type Code string

// Error codes.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus maps a code to its HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, a client-safe message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInvalidState       = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrUnavailable        = &Error{Code: CodeUnavailable, Message: "upstream unavailable"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// InvalidState reports an operation that is not allowed in the current state.
func InvalidState(msg string) *Error {
	return &Error{Code: CodeInvalidState, Message: msg}
}

// InvalidStatef is InvalidState with a formatted message.
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// Unavailable reports an upstream dependency failure.
func Unavailable(msg string, cause error) *Error {
	return &Error{Code: CodeUnavailable, Message: msg, cause: cause}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
