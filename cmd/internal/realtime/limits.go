package realtime

import "time"

// Security/performance limits.
// The connection and frame budgets are part of the protocol contract; clients
// that exceed them are closed with a policy-violation code.
const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Per-address connection budget: attempts per trailing window.
	connAttemptLimit  = 30
	connAttemptWindow = 60 * time.Second

	// Per-connection inbound frame budget: frames per fixed window,
	// reset when the window elapses.
	frameLimit  = 50
	frameWindow = 60 * time.Second
)

const (
	// Heartbeat defaults (can be overridden by env in ws_gateway.go).
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Idle reaping: swept every idleSweepInterval, closed after idleTimeout
	// without an inbound frame, regardless of state.
	idleSweepInterval = 5 * time.Minute
	idleTimeout       = 30 * time.Minute
)
