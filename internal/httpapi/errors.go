package httpapi

import (
	"encoding/json"
	"net/http"

	"tarotd/internal/backend"
	"tarotd/internal/lang"
	"tarotd/internal/reading"
	"tarotd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case reading.IsInvalidInput(err):
		return http.StatusBadRequest
	case backend.IsTooBusy(err):
		return http.StatusTooManyRequests
	case lang.IsTranslationError(err):
		return http.StatusBadGateway
	case backend.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case backend.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		if he, ok := err.(HTTPError); ok {
			return he.StatusCode()
		}
		return http.StatusInternalServerError
	}
}

// writeError maps the error and writes a consistent JSON payload, updating
// the backpressure counter for rejections.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue_full")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		msg = "internal error"
	}
	writeJSONError(w, status, msg)
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
