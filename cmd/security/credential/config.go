package credential

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Persisted format constants. These pin the byte layout of stored hashes and are
// deliberately not configurable: migration tooling depends on salt being 32 hex
// chars and digests/signatures being 64 hex chars.
const (
	saltBytes = 16
	keyBytes  = 32

	saltHexLen   = 2 * saltBytes
	digestHexLen = 2 * keyBytes
)

// ScryptParams controls the memory-hard inner transform cost.
// N must be a power of two greater than one, as required by scrypt.Key.
type ScryptParams struct {
	N int
	R int
	P int
}

// Policy controls password validation.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Scrypt     ScryptParams
	BcryptCost int
	Policy     Policy
}

// DefaultConfig returns a baseline suitable for interactive logins.
// Values are intentionally conservative and can be overridden via env.
func DefaultConfig() Config {
	return Config{
		Scrypt: ScryptParams{
			N: 1 << 14, // 16 MiB working set at r=8
			R: 8,
			P: 1,
		},
		BcryptCost: bcrypt.DefaultCost,
		Policy: Policy{
			MinLength:      8,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - SCB_PASSWORD_MIN_LEN
// - SCB_PASSWORD_MAX_LEN
// - SCB_PASSWORD_REJECT_VERY_WEAK (true/false)
// - SCB_SCRYPT_N (power of two)
// - SCB_SCRYPT_R
// - SCB_SCRYPT_P
// - SCB_BCRYPT_COST
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("SCB_PASSWORD_MIN_LEN"); ok {
		n, err := atoiBounded(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("SCB_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("SCB_PASSWORD_MAX_LEN"); ok {
		n, err := atoiBounded(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("SCB_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("SCB_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("SCB_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if v, ok := os.LookupEnv("SCB_SCRYPT_N"); ok {
		n, err := atoiBounded(v, 1<<10, 1<<22)
		if err != nil {
			return Config{}, fmt.Errorf("SCB_SCRYPT_N: %w", err)
		}
		if n&(n-1) != 0 {
			return Config{}, fmt.Errorf("SCB_SCRYPT_N: must be a power of two")
		}
		cfg.Scrypt.N = n
	}

	if v, ok := os.LookupEnv("SCB_SCRYPT_R"); ok {
		n, err := atoiBounded(v, 1, 32)
		if err != nil {
			return Config{}, fmt.Errorf("SCB_SCRYPT_R: %w", err)
		}
		cfg.Scrypt.R = n
	}

	if v, ok := os.LookupEnv("SCB_SCRYPT_P"); ok {
		n, err := atoiBounded(v, 1, 16)
		if err != nil {
			return Config{}, fmt.Errorf("SCB_SCRYPT_P: %w", err)
		}
		cfg.Scrypt.P = n
	}

	if v, ok := os.LookupEnv("SCB_BCRYPT_COST"); ok {
		n, err := atoiBounded(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("SCB_BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = n
	}

	// Final sanity.
	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiBounded(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}
