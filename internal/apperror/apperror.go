// Package apperror defines the domain error taxonomy shared by the service
// and handler layers.
//
// ERROR DESIGN:
// Services return these typed errors; handlers translate them to HTTP
// status codes in exactly one place (handler.writeError). The sentinel
// values below are matched with errors.Is() anywhere in a wrapped chain,
// and *AppError carries the human-readable message via errors.As().
//
// NotFound and Forbidden are deliberately distinct: NotFound means the
// identifier did not resolve, Forbidden means it resolved but the caller
// lacks the rights (non-organiser edit, attendance change on a past
// event). The same mapping applies on the page and the JSON surfaces.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable error message
	Field   string // optional: input field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
