package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")

	// ErrUnauthenticated is the single externally observable authentication
	// failure. Decode failures and lookup misses both map to it so callers
	// cannot probe which one occurred.
	ErrUnauthenticated = errors.New("could not validate credentials")
)
