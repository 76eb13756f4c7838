package credential

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/scrypt"
)

// Service owns the hashing pipeline: config, the process MAC key, and the
// bounded pool the CPU-heavy transforms run on.
//
// Verify is a pure decision function with no side effects beyond logging; it
// never returns an error to its caller.
type Service struct {
	log  *slog.Logger
	cfg  Config
	key  []byte
	pool *Pool
}

// NewService constructs a Service. A nil pool gets a default-sized one; a nil
// logger falls back to slog.Default.
func NewService(log *slog.Logger, cfg Config, key []byte, pool *Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	if pool == nil {
		pool = NewPool(0)
	}
	return &Service{log: log, cfg: cfg, key: key, pool: pool}
}

// Config returns the service configuration (useful for policy checks upstream).
func (s *Service) Config() Config {
	return s.cfg
}

// innerHash runs the memory-hard transform over (credential, salt) and returns
// the hex digest. This is the shared first layer of the legacy digest and
// layered formats.
func (c Config) innerHash(credential string, salt []byte) (string, error) {
	key, err := scrypt.Key([]byte(credential), salt, c.Scrypt.N, c.Scrypt.R, c.Scrypt.P, keyBytes)
	if err != nil {
		return "", fmt.Errorf("scrypt: %w", err)
	}
	return hex.EncodeToString(key), nil
}
