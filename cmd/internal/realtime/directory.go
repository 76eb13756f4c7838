package realtime

import "sync"

// Directory holds every live connection regardless of state. Broadcast
// filters to authenticated clients; the idle sweeper walks all of them.
type Directory struct {
	mu      sync.RWMutex
	clients map[string]*Client // keyed by ConnectionID
}

// NewDirectory constructs an empty Directory.
func NewDirectory() *Directory {
	return &Directory{clients: make(map[string]*Client)}
}

// Add registers a client.
func (d *Directory) Add(c *Client) {
	d.mu.Lock()
	d.clients[c.ConnectionID] = c
	d.mu.Unlock()
}

// Remove drops a client by connection id.
func (d *Directory) Remove(connectionID string) {
	d.mu.Lock()
	delete(d.clients, connectionID)
	d.mu.Unlock()
}

// Len reports the number of live connections.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

// Snapshot returns the current clients as a slice so callers can iterate
// without holding the lock across sends.
func (d *Directory) Snapshot() []*Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Client, 0, len(d.clients))
	for _, c := range d.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast delivers a pre-marshaled frame to every authenticated client.
// Sends are non-blocking: a client with a full queue misses the frame rather
// than stalling the broadcaster. Returns the number of clients reached.
func (d *Directory) Broadcast(frame []byte) int {
	delivered := 0
	for _, c := range d.Snapshot() {
		if !c.Authenticated() {
			continue
		}
		select {
		case c.Send <- frame:
			delivered++
		default:
		}
	}
	return delivered
}
