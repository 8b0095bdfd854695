// Package apperror defines the domain errors shared by the service, storage
// and transport layers.
//
// Every operation in linkshelf returns either a result or one of these
// errors; the HTTP layer maps them to status codes and short user-facing
// messages (see handler/response.go). Callers test for a kind with
// errors.Is against the sentinels below.
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
	ErrInternal   = errors.New("internal error")
)

// AppError carries a sentinel kind plus a message that is safe to show to
// the caller. The wrapped Cause, when present, stays server-side.
type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable, user-facing
	Field   string // optional: input field at fault
	Cause   error  // optional: underlying storage/transport error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
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
		Message: fmt.Sprintf("%s already exists with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller is not on the allow-list.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Internal wraps an unexpected failure (usually storage) behind a short
// message. The cause is logged, never sent to clients.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// UserMessage returns the caller-facing text for err. Errors that are not
// an *AppError produce a generic message so internal details never leak.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An internal error occurred"
}
