package app

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates the process logger. JSON is the default; "pretty" renders
// human-readable colored lines for local development.
func NewLogger(level, format string) *slog.Logger {
	lvl := parseLogLevel(level)

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty":
		h = newPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}, true)
	default:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     lvl,
			AddSource: true,
		})
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		u := v.Uint64()
		if u > uint64(math.MaxInt64) {
			return 0, false
		}
		return int64(u), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		switch x := v.Any().(type) {
		case int:
			return int64(x), true
		case int64:
			return x, true
		case int32:
			return int64(x), true
		case uint:
			if x > uint(math.MaxInt64) {
				return 0, false
			}
			return int64(x), true
		case uint64:
			if x > uint64(math.MaxInt64) {
				return 0, false
			}
			return int64(x), true
		default:
			return 0, false
		}
	}
}

func colorizeHTTPMethod(method string, color bool) string {
	if !color {
		return method
	}
	switch method {
	case "GET":
		return ansiBlue + method + ansiReset
	case "POST":
		return ansiGreen + method + ansiReset
	case "PUT", "PATCH":
		return ansiYellow + method + ansiReset
	case "DELETE":
		return ansiRed + method + ansiReset
	default:
		return ansiMagenta + method + ansiReset
	}
}

func colorizeStatusCode(code int, color bool) string {
	s := strconv.Itoa(code)
	if !color {
		return s
	}
	switch {
	case code >= 500:
		return ansiRed + s + ansiReset
	case code >= 400:
		return ansiRed + s + ansiReset
	case code >= 300:
		return ansiMagenta + s + ansiReset
	default:
		return ansiGreen + s + ansiReset
	}
}

func colorizeStatusClass(class string, color bool) string {
	if !color {
		return class
	}
	switch class {
	case "5xx":
		return ansiRed + class + ansiReset
	case "4xx":
		return ansiRed + class + ansiReset
	case "3xx":
		return ansiMagenta + class + ansiReset
	default:
		return ansiGreen + class + ansiReset
	}
}

func colorizeDurationMS(ms int64, color bool) string {
	s := fmt.Sprintf("%dms", ms)
	if !color {
		return s
	}
	switch {
	case ms >= 1500:
		return ansiRed + s + ansiReset
	case ms >= 400:
		return ansiYellow + s + ansiReset
	default:
		return ansiGreen + s + ansiReset
	}
}

func colorizeResult(result string, color bool) string {
	icon := ""
	switch result {
	case "success":
		icon = "✅ "
	case "redirect":
		icon = "↪ "
	case "client_error":
		icon = "⚠ "
	case "server_error", "failed", "error":
		icon = "🛑 "
	}

	if !color {
		return icon + result
	}
	switch result {
	case "success":
		return ansiGreen + icon + result + ansiReset
	case "redirect":
		return ansiMagenta + icon + result + ansiReset
	case "client_error":
		return ansiRed + icon + result + ansiReset
	case "server_error", "failed", "error":
		return ansiRed + icon + result + ansiReset
	default:
		return ansiBlue + icon + result + ansiReset
	}
}
