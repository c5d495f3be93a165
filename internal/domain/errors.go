package domain

import "errors"

// Sentinel errors shared across layers. Layer operations convert these to
// typed results at their boundary; they never escape a public signature.
var (
	// ErrNotFound indicates the key is absent. Reported as MISS, not an error.
	ErrNotFound = errors.New("cache entry not found")

	// ErrExpired indicates the key is present but past its TTL.
	ErrExpired = errors.New("cache entry expired")

	// ErrValidation indicates a malformed key, value, or parameter.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates an external collaborator was unreachable.
	ErrUpstream = errors.New("upstream collaborator failed")

	// ErrTimeout indicates a boundary-level cancellation.
	ErrTimeout = errors.New("operation timeout")
)
