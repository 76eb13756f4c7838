package credential

import (
	"strings"
	"testing"
)

func TestParseStored_Layered(t *testing.T) {
	wrapped := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	salt := strings.Repeat("ab", 16)
	sig := strings.Repeat("cd", 32)

	rec, err := ParseStored(LayeredTag + ":" + wrapped + ":" + salt + ":" + sig)
	if err != nil {
		t.Fatalf("ParseStored error: %v", err)
	}
	if rec.Kind != KindLayered {
		t.Fatalf("expected KindLayered, got %v", rec.Kind)
	}
	if rec.Wrapped != wrapped || rec.Salt != salt || rec.Signature != sig {
		t.Fatalf("fields not preserved: %+v", rec)
	}
}

func TestParseStored_LegacyAdaptive(t *testing.T) {
	s := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	rec, err := ParseStored(s)
	if err != nil {
		t.Fatalf("ParseStored error: %v", err)
	}
	if rec.Kind != KindLegacyAdaptive || rec.Adaptive != s {
		t.Fatalf("unexpected decode: %+v", rec)
	}
}

func TestParseStored_LegacyDigest(t *testing.T) {
	digest := strings.Repeat("0f", 32)
	salt := strings.Repeat("a1", 16)

	rec, err := ParseStored(digest + "." + salt)
	if err != nil {
		t.Fatalf("ParseStored error: %v", err)
	}
	if rec.Kind != KindLegacyDigest || rec.Digest != digest || rec.Salt != salt {
		t.Fatalf("unexpected decode: %+v", rec)
	}
}

func TestParseStored_Rejections(t *testing.T) {
	digest := strings.Repeat("0f", 32)
	salt := strings.Repeat("a1", 16)
	sig := strings.Repeat("cd", 32)

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"garbage", "not-a-hash"},
		{"three colon fields without tag", digest + ":" + salt + ":" + sig},
		{"four colon fields wrong tag", "xyz:$2a$10$abc:" + salt + ":" + sig},
		{"layered with three fields", LayeredTag + ":$2a$10$abc:" + salt},
		{"layered with five fields", LayeredTag + ":$2a$10$abc:" + salt + ":" + sig + ":extra"},
		{"layered with bad salt", LayeredTag + ":$2a$10$abc:zz:" + sig},
		{"layered wrapped not bcrypt", LayeredTag + ":plain:" + salt + ":" + sig},
		{"digest with short salt", digest + ".abcd"},
		{"digest with non-hex digest", strings.Repeat("zz", 32) + "." + salt},
		{"digest with two dots", digest + "." + salt + ".extra"},
		{"dot and colon mixed", digest + "." + salt + ":tail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseStored(tt.in); err == nil {
				t.Fatalf("expected ErrInvalidHash for %q", tt.in)
			}
		})
	}
}
