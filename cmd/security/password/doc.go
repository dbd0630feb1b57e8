// Package password provides password hashing and verification for TechHeal.
//
// It implements bcrypt hashing with a per-call random salt and includes:
//   - Configurable bcrypt cost (via environment variables)
//   - The 72-byte input truncation mandated by bcrypt, applied identically on
//     hash and verify so previously issued digests keep verifying
//
// Security notes:
// - Digest strings are treated as untrusted input during Verify; a malformed
//   digest is reported as a mismatch, never a panic.
// - Hashing cost is intentionally high; callers must expect a blocking,
//   CPU-bound call.
package password
