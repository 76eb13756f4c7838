package realtime

import (
	"sync"
	"time"
)

// Client represents one connected websocket session.
//
// Design notes:
// - Send carries pre-marshaled frames so one broadcast encodes once.
// - Send is intentionally NOT closed by the server to avoid panics from concurrent broadcasters.
// - done is used to signal goroutines to stop.
// - Close is idempotent.
type Client struct {
	ConnectionID string
	Send         chan []byte

	done      chan struct{}
	closeOnce sync.Once

	mu            sync.Mutex
	authenticated bool
	subjectID     int64
	lastActivity  time.Time
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(connectionID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnectionID: connectionID,
		Send:         make(chan []byte, sendQueueSize),
		done:         make(chan struct{}),
		lastActivity: time.Now(),
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
// It does NOT close Send to keep broadcast safe under concurrency.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Touch records inbound activity for idle reaping.
func (c *Client) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// LastActivity returns the time of the most recent inbound frame.
func (c *Client) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// SetAuthenticated transitions the connection into the authenticated state.
func (c *Client) SetAuthenticated(subjectID int64) {
	c.mu.Lock()
	c.authenticated = true
	c.subjectID = subjectID
	c.mu.Unlock()
}

// Authenticated reports whether the connection has completed authentication.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// SubjectID returns the bound subject id, or 0 when unauthenticated.
func (c *Client) SubjectID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subjectID
}
