package domain

import "errors"

var (
	// ErrConceptNotFound is returned by lookups that match no node.
	// Query operations turn it into an empty result.
	ErrConceptNotFound = errors.New("concept not found")

	// ErrDuplicateEdge is returned when an edge between the same
	// unordered pair already exists. Callers reinforce instead.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrStoreUnavailable wraps persistence failures; retryable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidParameter rejects malformed input before store access.
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrEdgeNotFound      = errors.New("edge not found")
	ErrFlashcardNotFound = errors.New("flashcard not found")
)
