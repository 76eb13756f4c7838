package credential

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"scholarbridge/cmd/security/secret"

	"golang.org/x/crypto/bcrypt"
)

// Verify decides whether credential matches the persisted stored hash.
//
// It never fails loudly: malformed stored data, transform errors, and context
// cancellation all map to a non-match plus a logged diagnostic, so callers
// cannot leak why a check failed. The uniform outward answer is the point.
func (s *Service) Verify(ctx context.Context, credential, stored string) bool {
	rec, err := ParseStored(stored)
	if err != nil {
		s.log.Warn("credential.verify.unrecognized_format")
		return false
	}

	var ok bool
	err = s.pool.Do(ctx, func() error {
		switch rec.Kind {
		case KindLegacyDigest:
			ok = s.verifyLegacyDigest(credential, rec)
			return nil
		case KindLegacyAdaptive:
			ok = s.verifyLegacyAdaptive(credential, rec)
			return nil
		case KindLayered:
			ok = s.verifyLayered(credential, rec)
			return nil
		default:
			return ErrInvalidHash
		}
	})
	if err != nil {
		s.log.Warn("credential.verify.fail", "err", err)
		return false
	}
	return ok
}

// verifyLegacyDigest recomputes the scrypt digest with the stored salt and
// compares in constant time.
func (s *Service) verifyLegacyDigest(credential string, rec Stored) bool {
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return false
	}

	inner, err := s.cfg.innerHash(credential, salt)
	if err != nil {
		s.log.Warn("credential.verify.scrypt.fail", "err", err)
		return false
	}

	return subtle.ConstantTimeCompare([]byte(inner), []byte(rec.Digest)) == 1
}

// verifyLegacyAdaptive delegates to bcrypt's own verification primitive.
// A stored string bcrypt cannot parse is a hard non-match; there is no
// special-cased account shortcut in this path.
func (s *Service) verifyLegacyAdaptive(credential string, rec Stored) bool {
	err := bcrypt.CompareHashAndPassword([]byte(rec.Adaptive), []byte(credential))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.log.Warn("credential.verify.bcrypt.fail", "err", err)
	}
	return false
}

// verifyLayered checks both layers independently:
//  1. the credential against the bcrypt-wrapped inner digest, and
//  2. the keyed signature against the *stored* wrapped value.
//
// Step 2 runs even on a wrong credential so a tampered record is detected
// regardless, and a signature mismatch is logged distinctly server-side while
// the caller sees an ordinary non-match.
func (s *Service) verifyLayered(credential string, rec Stored) bool {
	sigOK := secret.MACEqualHex(secret.MACHex(rec.Wrapped, s.key), rec.Signature)
	if !sigOK {
		s.log.Warn("credential.verify.signature_mismatch", "hint", "possible stored-hash tamper")
	}

	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return false
	}

	inner, err := s.cfg.innerHash(credential, salt)
	if err != nil {
		s.log.Warn("credential.verify.scrypt.fail", "err", err)
		return false
	}

	credOK := bcrypt.CompareHashAndPassword([]byte(rec.Wrapped), []byte(inner)) == nil

	return credOK && sigOK
}
