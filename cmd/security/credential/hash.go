package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"scholarbridge/cmd/security/secret"

	"golang.org/x/crypto/bcrypt"
)

// Encode produces a fresh layered stored hash for credential:
//
//	scb:<bcrypt(innerScryptHex)>:<hex-salt>:<hex-HMAC(wrapped)>
//
// Only this format is newly produced; legacy formats exist solely for
// verification of already-persisted records.
//
// Failure here is fatal to the calling operation: credential creation must not
// proceed with a weak or partial hash, so entropy and transform errors
// propagate instead of degrading.
func (s *Service) Encode(ctx context.Context, credential string) (string, error) {
	if err := s.cfg.Validate(credential); err != nil {
		return "", err
	}

	var encoded string
	err := s.pool.Do(ctx, func() error {
		salt := make([]byte, saltBytes)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("salt: %w", err)
		}

		inner, err := s.cfg.innerHash(credential, salt)
		if err != nil {
			return err
		}

		wrapped, err := bcrypt.GenerateFromPassword([]byte(inner), s.cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("bcrypt: %w", err)
		}

		sig := secret.MACHex(string(wrapped), s.key)

		encoded = strings.Join([]string{
			LayeredTag,
			string(wrapped),
			hex.EncodeToString(salt),
			sig,
		}, ":")
		return nil
	})
	if err != nil {
		return "", err
	}
	return encoded, nil
}
