package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist, or the caller does
	// not own it (existence is not leaked to non-owners).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInactive is returned when a taker opens or submits to an ended quiz.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrQuizEnded rejects ending a quiz that is already ended.
	ErrQuizEnded = errors.New("quiz is already ended")
	// ErrQuizActive rejects activating a quiz that is already active.
	ErrQuizActive = errors.New("quiz is already active")
	// ErrHasSubmissions blocks deletion of a quiz with recorded submissions.
	ErrHasSubmissions = errors.New("quiz has submissions")
	// ErrDuplicateSubmission rejects a retake when retakes are disallowed.
	ErrDuplicateSubmission = errors.New("student already submitted this quiz")
	// ErrWrongPassword rejects access to a private quiz with a missing or
	// incorrect password.
	ErrWrongPassword = errors.New("incorrect quiz password")
)

// ValidationError carries every violation found in a quiz or submission
// payload, not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Validation builds a ValidationError from accumulated violations, or nil
// when there are none.
func Validation(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// StorageError wraps a persistence failure. Callers may treat it as
// transient and retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err in a StorageError unless it is nil or already a
// domain-level error that must pass through unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
