// Package eventsign produces and checks keyed signatures over realtime event frames.
//
// The signed surface is a canonical subset {type, payloadId, subjectId, timestamp},
// never the full payload: a frame cannot be replayed under a different timestamp
// or relabeled to a different type without failing verification, and the payload
// shape can evolve without invalidating old signatures.
package eventsign

import (
	"fmt"

	"scholarbridge/cmd/security/secret"
)

// Signer computes HMAC-SHA256 signatures with the process secret.
type Signer struct {
	key []byte
}

// New constructs a Signer. The key is the process secret; see cmd/security/secret.
func New(key []byte) *Signer {
	return &Signer{key: key}
}

// Sign returns the hex signature for one event frame.
func (s *Signer) Sign(frameType string, payloadID, subjectID, timestamp int64) string {
	return secret.MACHex(canonical(frameType, payloadID, subjectID, timestamp), s.key)
}

// Verify checks sig against the canonical subset in constant time.
func (s *Signer) Verify(frameType string, payloadID, subjectID, timestamp int64, sig string) bool {
	want := s.Sign(frameType, payloadID, subjectID, timestamp)
	return secret.MACEqualHex(sig, want)
}

// canonical serializes the signed subset deterministically: fixed key order,
// no whitespace. Built by hand so the byte layout cannot drift with
// encoding/json internals.
func canonical(frameType string, payloadID, subjectID, timestamp int64) string {
	return fmt.Sprintf(
		`{"payloadId":%d,"subjectId":%d,"timestamp":%d,"type":%q}`,
		payloadID, subjectID, timestamp, frameType,
	)
}
