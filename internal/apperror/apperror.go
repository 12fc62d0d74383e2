// Package apperror defines the application's error taxonomy.
//
// Every failure the core can produce maps to one of the sentinel errors
// below. Layers above (HTTP handlers today, potentially a CLI or gRPC
// surface tomorrow) translate these to transport-specific codes; the core
// itself never thinks in status codes.
//
// The sentinels are checked with errors.Is, which walks the wrap chain —
// so services are free to add context with fmt.Errorf("...: %w", err)
// without breaking classification.
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
	ErrExpired    = errors.New("expired")
)

// AppError pairs a sentinel with a human-readable message and, for
// validation failures, the offending field.
type AppError struct {
	Err     error  // one of the sentinels above
	Message string // human-readable error message
	Field   string // optional: field causing the error
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden indicates a credential mismatch on a protected share.
// The message must not reveal anything beyond "a password is required" —
// callers probing for shares learn nothing else.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Expired indicates the share's expire_at instant has passed.
// Checked before any credential comparison on read paths, so even the
// correct password cannot resurrect an expired share.
func Expired(id string) *AppError {
	return &AppError{
		Err:     ErrExpired,
		Message: fmt.Sprintf("share %s has expired", id),
	}
}
