package realtime

import (
	"time"

	"scholarbridge/cmd/identity/ids"
)

// NewConnectionID returns a ULID used as websocket connection id.
// ULID is preferable to random hex for tracing and ordering in logs.
func NewConnectionID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
