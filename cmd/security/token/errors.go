package token

import "errors"

var (
	// ErrInvalidToken is the single decode failure: bad signature, unexpected
	// algorithm, structural damage, expiry in the past, and a missing subject
	// all collapse into it so callers cannot distinguish the causes.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid codec configuration.
	ErrConfig = errors.New("invalid token config")
)
