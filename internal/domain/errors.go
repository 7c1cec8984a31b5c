package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a traversal operation is not valid in the current phase.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAttemptNotFound is returned when an attempt id is unknown or expired.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuizNotFound indicates the quiz content could not be located.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUnknownDemographic indicates a demographic outside the supported set.
	ErrUnknownDemographic = errors.New("unknown demographic")
	// ErrOptionNotFound indicates a submitted option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptIncomplete is returned when a result is requested before the last answer.
	ErrAttemptIncomplete = errors.New("attempt incomplete")
	// ErrUnauthenticated indicates the operation needs a signed-in user.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// FetchError reports that a quiz schema could not be retrieved or was malformed.
type FetchError struct {
	Slug string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch quiz %q: %v", e.Slug, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError reports that a completed result could not be written or read.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
