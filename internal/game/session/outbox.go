// Package session tracks the pairing of live connections with assigned
// player identities and owns the per-session outbound queue.
package session

import (
	"fmt"
	"sync"
)

// Outbox buffers outbound frames for one session. The connection's write
// pump drains it; producers (dispatcher, ticker) push without ever blocking
// on a slow peer.
type Outbox struct {
	playerID string
	queue    chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewOutbox creates an Outbox for the given player id.
//
// Precondition: playerID must be non-empty.
// Postcondition: Returns an Outbox with an open queue of the given capacity
// (a default is applied when capacity <= 0).
func NewOutbox(playerID string, capacity int) *Outbox {
	if capacity <= 0 {
		capacity = 64
	}
	return &Outbox{
		playerID: playerID,
		queue:    make(chan []byte, capacity),
	}
}

// PlayerID returns the owning player's identifier.
func (o *Outbox) PlayerID() string {
	return o.playerID
}

// Push enqueues a frame without blocking.
//
// Postcondition: The frame is queued, or an error is returned when the
// outbox is closed or full. A full outbox means the peer is too slow to
// keep up; the caller decides whether that is fatal for the session.
func (o *Outbox) Push(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox for %s is closed", o.playerID)
	}
	select {
	case o.queue <- frame:
		return nil
	default:
		return fmt.Errorf("outbox for %s is full", o.playerID)
	}
}

// Frames returns the read-only queue drained by the write pump.
func (o *Outbox) Frames() <-chan []byte {
	return o.queue
}

// Close marks the outbox closed and closes the queue. Safe to call more
// than once.
//
// Postcondition: Further Push calls return an error.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
