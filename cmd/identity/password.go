// Package identity password hashing (bcrypt).
//
// This file preserves identity's public API:
//
//   - HashPassword
//   - VerifyPassword
//
// while using cmd/security/password as the single source of truth for the
// bcrypt cost (defaults + env overrides) and the 72-byte truncation rule.
package identity

import "techheal/cmd/security/password"

// HashPassword returns a bcrypt digest of the plaintext.
//
// Security contract:
// - The plaintext is truncated to 72 bytes (invalid trailing sequences
//   stripped) before hashing; the same rule applies on verification.
// - The digest embeds a per-call random salt.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Treat invalid env as an operational error, not a weak fallback.
		return "", err
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a password against a stored bcrypt digest.
// A malformed digest is a mismatch, never a distinct failure.
func VerifyPassword(plain, digest string) bool {
	cfg, err := password.FromEnv()
	if err != nil {
		cfg = password.DefaultConfig()
	}
	return cfg.Verify(plain, digest)
}
