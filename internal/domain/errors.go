package domain

import "errors"

var (
	// ErrNotFound is the base for absent records; stores return it from reads.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound is returned when no session exists for a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrPlayerNotFound is returned when a player acts before joining,
	// or after a reset invalidated their roster entry.
	ErrPlayerNotFound = errors.New("player not found in session")
	// ErrSessionFinished rejects joins to a game that has already ended.
	ErrSessionFinished = errors.New("game already ended")
	// ErrInvalidTransition rejects state-machine moves that would skip a phase.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrValidation is the base for local pre-write checks; wrap with detail.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnconfigured is returned when the backing store was never set up;
	// operations fail fast with it instead of hanging.
	ErrStoreUnconfigured = errors.New("store not configured")
)
