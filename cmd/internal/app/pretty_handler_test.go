package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestLevelTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "[DEBUG]"},
		{slog.LevelInfo, "[INFO]"},
		{slog.LevelWarn, "[WARN]"},
		{slog.LevelError, "[ERROR]"},
	}
	for _, tc := range cases {
		if got := levelTag(tc.level, false); got != tc.want {
			t.Fatalf("levelTag(%v, false)=%q want=%q", tc.level, got, tc.want)
		}
		colored := levelTag(tc.level, true)
		if stripANSI(colored) != tc.want {
			t.Fatalf("levelTag(%v, true)=%q, stripped want=%q", tc.level, colored, tc.want)
		}
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"", `""`},
		{"plain", "plain"},
		{"has space", `"has space"`},
		{`has"quote`, `"has\"quote"`},
	}
	for _, tc := range cases {
		if got := quoteIfNeeded(tc.in); got != tc.want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestPrettyHandler_WritesAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false)
	log := slog.New(h)

	log.Info("server.start", "addr", "127.0.0.1:8080", "db_enabled", false)

	out := buf.String()
	for _, want := range []string{"msg=server.start", "addr=127.0.0.1:8080", "db_enabled=false", "lvl=[INFO]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestPrettyHandler_EnabledRespectsLevel(t *testing.T) {
	t.Parallel()

	h := newPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info enabled at warn threshold")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error disabled at warn threshold")
	}
}
