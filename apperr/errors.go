package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the distinct client-visible failure classes. Handlers
// map these onto HTTP statuses in exactly one place.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("operation already in progress")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrForbidden   = errors.New("access denied")
)

// ValidationError carries every problem found in a request, not just the
// first, so a client can fix its input in one round trip.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return e.Problems[0]
	}
	return fmt.Sprintf("%d validation problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// NewValidation builds a ValidationError from a non-empty problem list.
func NewValidation(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// EngineError marks a failure inside the external image engine, including
// per-file timeouts.
type EngineError struct {
	File string
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("image engine failed on %s: %v", e.File, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Conflictf wraps ErrConflict with context.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}
