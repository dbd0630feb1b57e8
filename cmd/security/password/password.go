package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// maxInputBytes is bcrypt's hard input limit. Longer passwords are truncated
// by byte length before hashing; verification applies the identical rule so
// digests produced under it keep verifying.
const maxInputBytes = 72

// Truncate applies the canonical pre-hash transformation: cut the plaintext
// to at most 72 bytes, then drop any invalid UTF-8 byte sequences left by the
// cut. The byte-level cut plus invalid-sequence strip must stay bit-for-bit
// stable across releases, or previously issued digests stop verifying.
func Truncate(plain string) string {
	b := []byte(plain)
	if len(b) > maxInputBytes {
		b = b[:maxInputBytes]
	}
	return strings.ToValidUTF8(string(b), "")
}

// Hash returns a bcrypt digest of the (truncated) plaintext.
// The salt is randomized per call, so two hashes of the same input differ.
func (c Config) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	cost := c.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", ErrInvalidCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(Truncate(plain)), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plain matches the stored digest.
//
// The digest is untrusted input; a malformed digest is a mismatch, never a
// panic or a distinct error the caller could leak.
func (c Config) Verify(plain, digest string) bool {
	if plain == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(Truncate(plain))) == nil
}
