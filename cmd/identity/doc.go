// Package identity implements TechHeal's identity foundation.
//
// It contains the user model and Postgres store, field normalization, and the
// per-request Resolver that turns a bearer token into a persisted user.
//
// This package is intentionally dependency-light and security-first.
package identity
