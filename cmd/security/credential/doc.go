// Package credential implements the versioned stored-hash pipeline for ScholarBridge.
//
// Three persisted formats are supported, decoded once at the data boundary into a
// tagged Stored value:
//   - Legacy digest:   <64-hex scrypt digest>.<32-hex salt>
//   - Legacy adaptive: a plain bcrypt string (its own $2 prefix marker)
//   - Layered:         scb:<bcrypt of inner scrypt hex>:<32-hex salt>:<64-hex HMAC>
//
// Only the layered format is ever newly produced. Its HMAC segment is a keyed
// signature over the bcrypt-wrapped value; a mismatch means the stored record was
// tampered with and is reported to callers exactly like a wrong credential.
//
// Security notes:
// - Stored strings are treated as untrusted input during Verify.
// - All digest and signature comparisons are constant time.
// - Verify never returns an error to its caller; malformed data is a non-match.
package credential
