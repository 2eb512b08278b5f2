package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/tracker"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
// Unexpected errors are logged and answered without their text.
func RegisterErrorHandler(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromError(err); apiErr != nil {
				return apiErr
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", "status", status, "error", errors.Join(errs...))
		}

		// huma's own validation failures arrive with a 422 and one error per field.
		var details map[string]string
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
			details = detailsOf(errs)
		}

		return &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
			Details: details,
		}
	}
}

// fromError maps known error types; nil means "not ours".
func fromError(err error) *APIError {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return &APIError{
			status:  storeErr.HTTPCode(),
			Code:    statusToCode(storeErr.HTTPCode()),
			Message: storeErr.Message,
		}
	}

	switch {
	case errors.Is(err, tracker.ErrInvalidTransition), errors.Is(err, tracker.ErrNoBookSelected):
		return &APIError{
			status:  http.StatusConflict,
			Code:    string(domainerrors.CodeInvalidState),
			Message: err.Error(),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{
			status:  http.StatusGatewayTimeout,
			Code:    string(domainerrors.CodeUnavailable),
			Message: "request timed out",
		}
	}
	return nil
}

func detailsOf(errs []error) map[string]string {
	details := make(map[string]string)
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) && detail.Location != "" {
			details[detail.Location] = detail.Message
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return string(domainerrors.CodeUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}
