// Package httpserver holds the ambient HTTP plumbing (response envelopes,
// request middleware) internal/listener builds the watchdog's thin HTTP
// surface on top of.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wisbric/watchdog/internal/werr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, err string, message string) {
	Respond(w, status, ErrorResponse{Error: err, Message: message})
}

// RespondEngineError maps a HealthCheckEngine/MetricCheckEngine error's
// werr.Class onto the HTTP status spec.md §7 documents: InvalidArgument ->
// 400, everything else -> 500 (and logged, since a 500 here means the store
// or an engine invariant failed, not a bad request).
func RespondEngineError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	if werr.Is(err, werr.ClassInvalidArgument) {
		RespondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	logger.Error(action, "error", err)
	RespondError(w, http.StatusInternalServerError, "internal_error", "the request could not be completed")
}
