package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// EnvKey is the env var name for the process MAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	EnvKey = "SCB_SECRET_KEY"

	// devFallbackKey keeps local development working without configuration.
	// It MUST be rejected under enforced policy (see app.ValidateSecurityConfig).
	devFallbackKey = "scholarbridge-dev-secret-do-not-use-in-production"
)

// MACHex returns an HMAC-SHA256 hex digest of msg using key.
// Output is stable 64-char hex, suitable for storage and wire frames.
func MACHex(msg string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}

// MACEqualHex compares a computed MAC against an expected hex MAC in constant time.
// A length mismatch is a plain false (length is not secret for a fixed-size MAC).
func MACEqualHex(got, want string) bool {
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// KeyFromEnv returns the configured secret bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrKeyMissing.
// If too short -> ErrKeyTooShort.
func KeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(EnvKey))
	if raw == "" {
		return nil, ErrKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrKeyTooShort
	}
	return b, nil
}

// Enabled reports whether the env key is present (non-empty after trim).
// Note: This does not enforce minimum length. Use KeyFromEnv for policy checks.
func Enabled() bool {
	raw := strings.TrimSpace(os.Getenv(EnvKey))
	return raw != ""
}

// ProcessKey returns the secret used for stored-hash signatures and event MACs.
// Behavior:
// - If SCB_SECRET_KEY is set (non-empty), returns it.
// - Otherwise falls back to the dev key so local runs stay functional.
func ProcessKey() []byte {
	raw := strings.TrimSpace(os.Getenv(EnvKey))
	if raw == "" {
		return []byte(devFallbackKey)
	}
	return []byte(raw)
}

// ProcessKeyRequire returns the secret in enforced mode.
// It fails if the key is missing or too short; there is no dev fallback.
func ProcessKeyRequire(minBytes int) ([]byte, error) {
	return KeyFromEnv(minBytes)
}
