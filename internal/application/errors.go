package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no valid session backs the call.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when the operation is incompatible with the current state.
	ErrConflict = errors.New("application: conflict")
	// ErrCheckinNotRecorded is returned when a valid check-in code was spent
	// but the shift change could not be written. The code is gone; the caller
	// has to read a fresh one and retry.
	ErrCheckinNotRecorded = errors.New("application: check-in not recorded")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrSessionExpired     = fmt.Errorf("%w: session expired", ErrUnauthenticated)
	ErrAlreadyExists      = fmt.Errorf("%w: already exists", ErrConflict)
	ErrInvalidCheckinCode = fmt.Errorf("%w: invalid check-in code", ErrConflict)
	ErrAlreadyProcessed   = fmt.Errorf("%w: request already processed", ErrConflict)
	ErrRequestProcessed   = fmt.Errorf("%w: processed requests cannot be deleted", ErrConflict)
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrCheckinNotRecorded):
		return "checkin_not_recorded"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
