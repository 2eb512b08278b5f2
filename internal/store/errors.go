package store

import (
	"fmt"
	"net/http"
)

// Error is a storage error carrying the HTTP status it maps to.
type Error struct {
	Code    int    // HTTP status code
	Message string // client-safe message
	Err     error  // underlying error, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code and message, so wrapped
// sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	// ErrNotFound is returned by Update on a missing document.
	ErrNotFound = &Error{Code: http.StatusNotFound, Message: "document not found"}

	// ErrAlreadyExists is returned when a document that must be new is present.
	ErrAlreadyExists = &Error{Code: http.StatusConflict, Message: "document already exists"}

	// ErrInvalidInput covers malformed paths and transforms applied to the wrong type.
	ErrInvalidInput = &Error{Code: http.StatusBadRequest, Message: "invalid input"}

	// ErrConflict means a transaction kept losing optimistic concurrency races.
	ErrConflict = &Error{Code: http.StatusConflict, Message: "transaction conflict"}
)
