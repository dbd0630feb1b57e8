package password

import "errors"

// Public, stable errors for callers.
var (
	ErrEmptyPassword = errors.New("empty password")
	ErrInvalidCost   = errors.New("invalid bcrypt cost")
)
