package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hurttlocker/ratemyfit/internal/wardrobe"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Success: status < 400, Data: data}); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Error: message}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// handleError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without their message.
func handleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), logger)
	case errors.Is(err, wardrobe.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), logger)
	case errors.Is(err, wardrobe.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error(), logger)
	case errors.Is(err, wardrobe.ErrInvalidTag):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), logger)
	default:
		logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", logger)
	}
}
