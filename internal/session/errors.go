package session

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors never change session state.
var (
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrUnknownExercise   = errors.New("unknown exercise")
	ErrIncompleteAnswers = errors.New("please answer all questions before submitting")
	ErrRetryNotAllowed   = errors.New("no more retries available or already approved")
	ErrNoAttempts        = errors.New("no attempts to submit")
	ErrBusy              = errors.New("another request for this session is in flight")
)

// ErrHandoff wraps a result-sink failure. The session stays submitted and
// CompleteQuiz may be called again.
var ErrHandoff = errors.New("failed to save quiz results")

// IncompleteError lists the exercises still missing an option or rationale.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s (missing: %s)", ErrIncompleteAnswers, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Unwrap() error { return ErrIncompleteAnswers }

// IsValidation reports whether err is a recoverable user-facing error that
// left the session untouched.
func IsValidation(err error) bool {
	for _, target := range []error{ErrInvalidState, ErrUnknownExercise, ErrIncompleteAnswers, ErrRetryNotAllowed, ErrNoAttempts} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
