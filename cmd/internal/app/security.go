package app

import (
	"errors"

	"scholarbridge/cmd/security/secret"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast is intentional: silently falling back to the development key in
// production is unacceptable. Enforcement goes through the same module that
// performs signing (security/secret), so policy and behavior cannot diverge.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireSecret {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret. Bytes, not runes: the key
	// is used as raw bytes.
	if _, err := secret.KeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, secret.ErrKeyMissing):
			return errors.New("security policy: SCB_REQUIRE_SECRET=true but SCB_SECRET_KEY is missing")
		case errors.Is(err, secret.ErrKeyTooShort):
			return errors.New("security policy: SCB_REQUIRE_SECRET=true but SCB_SECRET_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	// Hard assertion against future regressions reintroducing the dev fallback
	// under policy.
	if !secret.Enabled() {
		return errors.New("security policy: SCB_REQUIRE_SECRET=true but the process secret is not active")
	}

	return nil
}
