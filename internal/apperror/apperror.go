// Package apperror defines the domain error taxonomy shared by the service,
// repository and handler layers.
//
// Every error the core returns on a rejected path is an *AppError wrapping
// exactly one sentinel. Callers branch with errors.Is on the sentinel and
// reach the details (message, per-field violations) with errors.As.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Fields holds every violation of a multi-field validation failure,
	// keyed by the wire name of the offending field.
	Fields map[string][]string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

// Conflict reports a rejected state transition: a duplicate membership or
// subscription, removal of an absent one, or a self-subscription.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// Unauthorized is returned when an operation needs an authenticated actor
// and got the anonymous one.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// FieldErrors collects validation violations across a whole payload so they
// can be reported together instead of stopping at the first one.
type FieldErrors map[string][]string

// Add records a violation for field. Identical messages are kept once.
func (fe FieldErrors) Add(field, message string) {
	for _, m := range fe[field] {
		if m == message {
			return
		}
	}
	fe[field] = append(fe[field], message)
}

// Has reports whether field already has at least one violation.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Err returns nil when nothing was recorded, otherwise a validation
// AppError carrying every field.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fe[k], "; ")))
	}

	fields := make(map[string][]string, len(fe))
	for k, v := range fe {
		fields[k] = append([]string(nil), v...)
	}

	return &AppError{
		Err:     ErrValidation,
		Message: strings.Join(parts, ", "),
		Field:   keys[0],
		Fields:  fields,
	}
}
