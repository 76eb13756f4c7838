package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Registration is closed unless explicitly opened.
	RegistrationOpen bool

	// Per-address login lockout: LockoutThreshold failures inside
	// LockoutWindow lock the address out for LockoutDuration.
	LockoutThreshold int
	LockoutWindow    time.Duration
	LockoutDuration  time.Duration

	// Per-address request smoothing on the auth endpoints (token bucket).
	RequestRate  float64
	RequestBurst int
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:       envBool("SCB_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:     envInt64("SCB_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		RegistrationOpen: envBool("SCB_AUTH_REGISTRATION_OPEN", false),
		LockoutThreshold: envInt("SCB_AUTH_LOCKOUT_THRESHOLD", 5),
		LockoutWindow:    envDuration("SCB_AUTH_LOCKOUT_WINDOW", 15*time.Minute),
		LockoutDuration:  envDuration("SCB_AUTH_LOCKOUT_DURATION", 15*time.Minute),
		RequestRate:      envFloat("SCB_AUTH_REQUEST_RATE", 5),
		RequestBurst:     envInt("SCB_AUTH_REQUEST_BURST", 10),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = 5
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
