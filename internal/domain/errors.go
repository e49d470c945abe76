package domain

import (
	"errors"
	"fmt"
)

// Error classes. Callers match with errors.Is; the HTTP layer maps each class to a status code.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("admin privileges required")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

var (
	// ErrQuizNotFound indicates the question does not exist (anymore).
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrUserNotFound indicates the session points at a user that is gone.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrResultsRevealed is returned when an answer arrives after reveal.
	ErrResultsRevealed = fmt.Errorf("%w: cannot change response after results are revealed", ErrConflict)
	// ErrInvalidSelection indicates a label outside A-D.
	ErrInvalidSelection = fmt.Errorf("%w: selection must be one of A, B, C, D", ErrValidation)
	// ErrSessionNotFound indicates a missing or expired login session.
	ErrSessionNotFound = fmt.Errorf("session %w", ErrUnauthenticated)
)

// Validationf builds a validation error with a caller supplied message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
