package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz id does not resolve, or resolves
	// to a quiz students cannot see yet.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is the "first attempt" signal from the ledger.
	// It is not a failure; callers must distinguish it from ErrStoreUnavailable.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptExists is returned by the ledger when a conditional insert
	// collides with an already-recorded result.
	ErrAttemptExists = errors.New("attempt already recorded")
	// ErrInvalidSelection indicates a question or option index out of range.
	ErrInvalidSelection = errors.New("selection out of range")
	// ErrInvalidMarking indicates a malformed marking scheme.
	ErrInvalidMarking = errors.New("invalid marking scheme")
	// ErrAttemptClosed is returned when input arrives after submission began.
	ErrAttemptClosed = errors.New("attempt already submitted")
	// ErrStoreUnavailable wraps transient storage failures. It must never be
	// collapsed into ErrAttemptNotFound: a flaky read is not a first attempt.
	ErrStoreUnavailable = errors.New("store unavailable")
)
