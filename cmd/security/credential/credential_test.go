package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// testService uses cheap transform parameters so the suite stays fast.
func testService(t *testing.T) *Service {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Scrypt.N = 1 << 10
	cfg.BcryptCost = bcrypt.MinCost

	log := slog.New(slog.DiscardHandler)
	return NewService(log, cfg, []byte("test-secret-key-0123456789abcdef"), NewPool(2))
}

func TestEncodeAndVerify_RoundTrip(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	stored, err := s.Encode(ctx, "Sunshine!2024")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !strings.HasPrefix(stored, LayeredTag+":") {
		t.Fatalf("expected layered format, got %q", stored)
	}

	if !s.Verify(ctx, "Sunshine!2024", stored) {
		t.Fatalf("expected match")
	}
	if s.Verify(ctx, "sunshine!2024", stored) {
		t.Fatalf("case-flipped credential must not match")
	}
}

func TestVerify_DistinctCredentials(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	stored, err := s.Encode(ctx, "first credential 1!")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if s.Verify(ctx, "second credential 2!", stored) {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	stored, err := s.Encode(ctx, "Sunshine!2024")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	parts := strings.Split(stored, ":")
	if len(parts) != 4 {
		t.Fatalf("unexpected stored shape: %q", stored)
	}

	// Flip every signature character in turn; the correct credential must
	// still be rejected each time.
	sig := parts[3]
	for i := 0; i < len(sig); i++ {
		flipped := flipHexChar(sig[i])
		tampered := strings.Join([]string{parts[0], parts[1], parts[2], sig[:i] + string(flipped) + sig[i+1:]}, ":")
		if s.Verify(ctx, "Sunshine!2024", tampered) {
			t.Fatalf("tampered signature accepted at index %d", i)
		}
	}
}

func TestVerify_SignatureMismatchShape(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	stored, err := s.Encode(ctx, "Sunshine!2024")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	parts := strings.Split(stored, ":")

	// Correct prefix, wrong suffix vs fully wrong: both are plain non-matches.
	half := len(parts[3]) / 2
	partlyWrong := parts[3][:half] + strings.Repeat("0", len(parts[3])-half)
	fullyWrong := strings.Repeat("0", len(parts[3]))

	for _, sig := range []string{partlyWrong, fullyWrong} {
		tampered := strings.Join([]string{parts[0], parts[1], parts[2], sig}, ":")
		if s.Verify(ctx, "Sunshine!2024", tampered) {
			t.Fatalf("forged signature accepted")
		}
	}
}

func TestVerify_LegacyDigest(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("salt: %v", err)
	}
	inner, err := s.cfg.innerHash("legacy pass 9", salt)
	if err != nil {
		t.Fatalf("innerHash error: %v", err)
	}
	stored := inner + "." + hex.EncodeToString(salt)

	if !s.Verify(ctx, "legacy pass 9", stored) {
		t.Fatalf("expected legacy digest match")
	}
	if s.Verify(ctx, "legacy pass 8", stored) {
		t.Fatalf("expected legacy digest mismatch")
	}
}

func TestVerify_LegacyAdaptive(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	h, err := bcrypt.GenerateFromPassword([]byte("adaptive pass 7"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	if !s.Verify(ctx, "adaptive pass 7", string(h)) {
		t.Fatalf("expected adaptive match")
	}
	if s.Verify(ctx, "adaptive pass 6", string(h)) {
		t.Fatalf("expected adaptive mismatch")
	}
}

func TestVerify_UnrecognizedFormat(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	for _, stored := range []string{"", "nonsense", "a:b:c", "only.one.dot.extra"} {
		if s.Verify(ctx, "whatever", stored) {
			t.Fatalf("unrecognized format %q must never match", stored)
		}
	}
}

func TestEncode_PolicyRejection(t *testing.T) {
	s := testService(t)

	if _, err := s.Encode(context.Background(), "short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestPool_ContextCancelled(t *testing.T) {
	p := NewPool(1)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Do(ctx, func() error { return nil }); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)
}

func flipHexChar(c byte) byte {
	if c == '0' {
		return '1'
	}
	return '0'
}
