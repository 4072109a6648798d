package models

import "errors"

// Sentinel errors shared across the repository, service and handler layers.
// Services wrap these with fmt.Errorf("...: %w", err) to add call-site
// context; handlers unwrap with errors.Is to pick an HTTP status.
var (
	// ErrInvalidParameter marks caller-correctable input problems
	// (bad pagination, over-long query text, malformed filter values).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnauthorized is returned when no caller identity can be resolved.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIndexUnavailable marks a transient failure of the lexical or
	// vector index. Retryable.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrProviderUnavailable marks a transient failure of the embedding
	// provider. Retryable.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrSearchUnavailable means both index sources failed for one query.
	// Retryable by the caller; there is no partial data to return.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrDimensionMismatch means a query vector does not match the
	// configured embedding dimension. A configuration or data-integrity
	// bug: never retried, should alert.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInputTooLarge means a text exceeds the embedding provider's
	// input budget even after defensive truncation.
	ErrInputTooLarge = errors.New("input too large to embed")

	// ErrNotFound is returned for lookups of unknown documents.
	ErrNotFound = errors.New("not found")
)
