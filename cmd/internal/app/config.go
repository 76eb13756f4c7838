package app

import (
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, SCB_SECRET_KEY MUST be set (>= 32 bytes); the process refuses
	// to start on the built-in development key.
	RequireSecret bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("SCB_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("SCB_LOG_LEVEL", "info"),
		LogFormat: EnvString("SCB_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("SCB_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("SCB_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("SCB_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("SCB_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("SCB_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("SCB_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("SCB_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("SCB_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("SCB_READINESS_REQUIRE_DB", false),

		RequireSecret: EnvBool("SCB_REQUIRE_SECRET", false),

		CORSAllowedOrigins:   splitCSV(EnvString("SCB_CORS_ALLOWED_ORIGINS", "")),
		CORSAllowCredentials: EnvBool("SCB_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("SCB_CORS_MAX_AGE_SECONDS", 600),
	}
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
