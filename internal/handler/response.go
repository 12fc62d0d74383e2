package handler

// Response helpers keep every endpoint's JSON shape identical. Errors
// always come back as:
//
//	{"error": "not_found", "message": "share not found with id abc123"}
//
// so a client can branch on the machine-readable kind without parsing
// the human-readable message.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wyun/codeshare/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers
// must be set before the first body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a domain error into an HTTP status. The service
// layer deals in apperror kinds and knows nothing about status codes;
// this is the single place where that mapping lives.
//
// errors.Is walks the wrap chain, so a service error like
// fmt.Errorf("set visibility: %w", apperror.Forbidden(...)) still maps
// to 403.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrExpired):
			// 410 Gone: the resource existed but its time ran out.
			// Distinct from 404 so clients can show "this share
			// expired" instead of "never heard of it".
			status = http.StatusGone
			errorType = "expired"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — never leak internals to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
