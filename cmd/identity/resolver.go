package identity

import (
	"context"
	"time"

	"techheal/cmd/security/token"
)

// Resolver turns a raw bearer credential into the account behind it.
//
// Every failure mode collapses into ErrUnauthenticated so a caller cannot tell
// a forged token apart from an expired one or a deleted account.
type Resolver struct {
	codec *token.Codec
	store Store
}

// NewResolver wires a token codec to a user store.
func NewResolver(codec *token.Codec, store Store) *Resolver {
	return &Resolver{codec: codec, store: store}
}

// Resolve decodes raw at the given instant and loads the account the token's
// subject names.
func (r *Resolver) Resolve(ctx context.Context, raw string, now time.Time) (User, error) {
	const op = "identity.Resolve"

	if r == nil || r.codec == nil || r.store == nil {
		return User{}, OpError{Op: op, Kind: ErrUnauthenticated}
	}

	claims, err := r.codec.Decode(raw, now)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrUnauthenticated}
	}

	u, err := r.store.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrUnauthenticated}
	}
	return u, nil
}
