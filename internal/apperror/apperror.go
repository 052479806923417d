// Package apperror defines the closed set of error kinds the application
// reports to clients.
//
// Every failure that crosses a layer boundary is an *AppError whose Kind is
// one of the sentinels below. HTTP handlers map the kind to a status code;
// the optional Cause keeps the component-level reason (for example
// auth.ErrInvalidCredential) reachable through errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Kind    error  // one of the Err* sentinels above
	Cause   error  // optional: the component error that triggered this one
	Message string // human-readable, safe to show to clients (except for ErrInternal)
	Field   string // optional: request field causing the error
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Kind == ErrInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause, so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// New builds an AppError of the given kind.
func New(kind error, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap builds an AppError of the given kind around a cause.
func Wrap(kind, cause error, message string) *AppError {
	return &AppError{Kind: kind, Cause: cause, Message: message}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Kind:    ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Kind:    ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Kind:    ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports a missing or unusable credential. HTTP 401.
func Unauthorized(cause error, message string) *AppError {
	return Wrap(ErrUnauthorized, cause, message)
}

// Internal reports a store, provider or signing failure. The message is
// logged; clients only ever see a generic text.
func Internal(cause error, message string) *AppError {
	return Wrap(ErrInternal, cause, message)
}

// KindOf returns the kind of err, or ErrInternal when err is not an AppError.
func KindOf(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrInternal
}
