// Package token implements TechHeal's access-token codec.
//
// Access tokens are compact HS256 JWTs carrying a subject (the user's email)
// and an absolute expiry. They are stateless: there is no revocation list, so
// expiry is the only invalidation mechanism.
//
// The signing secret is injected through Config at construction time; this
// package never reads ambient process state.
package token
