// Package client implements the peer counterpart of the tick server: a
// websocket client that mirrors the authoritative GameState and forwards
// local input upstream. The mirror is replaced wholesale on every
// STATE_UPDATE; no merging or diffing happens client-side.
package client

import (
	"sync"

	"github.com/gridlands/gridlands/internal/game/world"
)

// Mirror holds the locally mirrored copy of the authoritative world state.
// All methods are safe for concurrent use; a render loop may read it at its
// own cadence, decoupled from network updates.
type Mirror struct {
	mu       sync.RWMutex
	playerID string
	state    world.GameState
}

// NewMirror creates an empty Mirror.
func NewMirror() *Mirror {
	return &Mirror{
		state: world.GameState{
			Players:      make(map[string]world.Player),
			WorldObjects: make(map[string]world.WorldObject),
		},
	}
}

// SetIdentity records the player id assigned by the server's INIT message.
func (m *Mirror) SetIdentity(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerID = playerID
}

// PlayerID returns the assigned player id, or empty before INIT.
func (m *Mirror) PlayerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playerID
}

// Replace swaps the entire mirrored state for the given snapshot.
func (m *Mirror) Replace(state world.GameState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.Players == nil {
		state.Players = make(map[string]world.Player)
	}
	if state.WorldObjects == nil {
		state.WorldObjects = make(map[string]world.WorldObject)
	}
	m.state = state
}

// State returns the current mirrored snapshot. The caller must treat the
// contained maps and slices as read-only.
func (m *Mirror) State() world.GameState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Tick returns the mirrored tick counter.
func (m *Mirror) Tick() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Tick
}

// Self returns this peer's own player record from the mirror, if present.
func (m *Mirror) Self() (world.Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.state.Players[m.playerID]
	return p, ok
}
