package eventsign

import (
	"strings"
	"testing"
)

func TestSignAndVerify(t *testing.T) {
	s := New([]byte("event-secret-key-0123456789abcdef"))

	sig := s.Sign("new-comment", 41, 7, 1757000000000)
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if !s.Verify("new-comment", 41, 7, 1757000000000, sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerify_RejectsMutations(t *testing.T) {
	s := New([]byte("event-secret-key-0123456789abcdef"))
	sig := s.Sign("new-comment", 41, 7, 1757000000000)

	tests := []struct {
		name      string
		frameType string
		payloadID int64
		subjectID int64
		timestamp int64
	}{
		{"relabeled type", "deleted-comment", 41, 7, 1757000000000},
		{"different payload", "new-comment", 42, 7, 1757000000000},
		{"different subject", "new-comment", 41, 8, 1757000000000},
		{"shifted timestamp", "new-comment", 41, 7, 1757000000001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s.Verify(tt.frameType, tt.payloadID, tt.subjectID, tt.timestamp, sig) {
				t.Fatalf("mutated frame verified")
			}
		})
	}
}

func TestVerify_RejectsForgedSignature(t *testing.T) {
	s := New([]byte("event-secret-key-0123456789abcdef"))

	if s.Verify("new-comment", 41, 7, 1757000000000, strings.Repeat("0", 64)) {
		t.Fatalf("forged signature verified")
	}

	other := New([]byte("some-other-key-material-32-bytes"))
	sig := other.Sign("new-comment", 41, 7, 1757000000000)
	if s.Verify("new-comment", 41, 7, 1757000000000, sig) {
		t.Fatalf("cross-key signature verified")
	}
}

func TestCanonical_Deterministic(t *testing.T) {
	a := canonical("new-comment", 1, 2, 3)
	b := canonical("new-comment", 1, 2, 3)
	if a != b {
		t.Fatalf("canonical form not deterministic")
	}
	if a != `{"payloadId":1,"subjectId":2,"timestamp":3,"type":"new-comment"}` {
		t.Fatalf("canonical layout drifted: %s", a)
	}
}
