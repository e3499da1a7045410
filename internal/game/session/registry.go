package session

import (
	"fmt"
	"sync"
)

// Session is the live pairing of one connection with one assigned player
// identity. The registry holds only this pairing; the world store owns the
// player record itself.
type Session struct {
	// ID is the player identity minted at connect time. Never reused
	// within the lifetime of the process.
	ID string
	// Name is the display name (for logging and chat attribution).
	Name string
	// Outbox is the outbound frame queue drained by the write pump.
	Outbox *Outbox
}

// Registry tracks all live sessions. All methods are safe for concurrent
// use.
//
// Invariant: at any instant each registered session has a distinct player
// id, so sessions and identities stay in bijection.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // player id -> session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Add registers a session under its player id.
//
// Precondition: sess must be non-nil with a non-empty ID and non-nil Outbox.
// Postcondition: Returns an error if the id is already registered.
func (r *Registry) Add(sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.ID]; exists {
		return fmt.Errorf("session %q already registered", sess.ID)
	}
	r.sessions[sess.ID] = sess
	return nil
}

// Remove deregisters the session for id and closes its outbox.
//
// Postcondition: Returns true if a session was removed. Removing an unknown
// id is a no-op returning false, which keeps disconnect handling idempotent.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return false
	}
	sess.Outbox.Close()
	delete(r.sessions, id)
	return true
}

// Get returns the session for id.
//
// Postcondition: Returns (session, true) if found, or (nil, false).
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// All returns a copy of the current session list.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
