// Package handler contains the HTTP layer: JSON API handlers, page
// handlers, projection of domain records into response shapes, and the
// pagination adapter. Handlers parse requests and write responses —
// business rules live in the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chrisBrookes93/events-management/internal/apperror"
)

// ErrorResponse is the standard error shape returned by all API endpoints,
// so the front-end always knows what fields to expect regardless of the
// status code.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // input field, on validation errors
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before the first body write — hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and a structured body.
// This is the single place where the service layer's error taxonomy meets
// HTTP:
//
//	ErrValidation → 400    ErrNotFound → 404
//	ErrForbidden  → 403    ErrConflict → 409
//	anything else → 500 (with a generic message — internal details such as
//	SQL fragments must never reach the client)
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
