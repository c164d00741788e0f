package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a missing or malformed input field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing store, review or user.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a lost slug uniqueness race.
	ErrConflict = errors.New("conflict")
	// ErrForbidden signals that the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrStorage signals an I/O or connectivity failure of the datastore.
	ErrStorage = errors.New("storage error")
)

// ValidationError carries a client-facing message and unwraps to ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() + ": " + e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validationf formats a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a backend failure so that errors.Is(err, ErrStorage) holds
// while the original cause stays reachable.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
