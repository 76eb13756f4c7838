// Package identity implements ScholarBridge's user principal persistence.
//
// It owns lookup by admission number, user creation, credential replacement,
// and the leaderboard point counter. Credential hashing itself lives in
// cmd/security/credential; this package stores and returns the opaque
// versioned hash string without interpreting it.
//
// This package is intentionally dependency-light and security-first.
package identity
