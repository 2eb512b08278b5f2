// Package response writes the JSON envelope every Booklog endpoint answers with:
//
//	{"v": 1, "success": true, "data": ...}
//	{"v": 1, "success": false, "error": {"code": "...", "message": "..."}}
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Version is the envelope format version sent as "v".
const Version = 1

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	V       int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Wrap builds a success envelope around data.
func Wrap(data any) Envelope {
	return Envelope{V: Version, Success: true, Data: data}
}

// Fail builds an error envelope.
func Fail(code, message string, details any) Envelope {
	return Envelope{V: Version, Error: &ErrorBody{Code: code, Message: message, Details: details}}
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Wrap(data), logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes an error envelope with the given status code.
func Error(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	write(w, status, Fail(code, message, nil), logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message, logger)
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", message, logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", message, logger)
}

func write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}
