package world

import (
	"sync"
	"time"

	"github.com/gridlands/gridlands/internal/game/rules"
)

// Run energy changes applied on each tick advance.
const (
	runEnergyDrainPerTick   = 1.0
	runEnergyRestorePerTick = 0.5
)

// Store is the sole owner of mutable world data. Every read and write goes
// through it, so one mutex reproduces the total order an event loop would
// give: no torn reads, no interleaving between a mutation and a snapshot.
type Store struct {
	mu      sync.Mutex
	width   int
	height  int
	chatCap int
	now     func() time.Time

	tick    int64
	players map[string]Player
	chat    []ChatMessage
	objects map[string]WorldObject
}

// NewStore creates an empty Store for a width x height grid with a bounded
// chat history.
//
// Precondition: width, height, and chatCap must be > 0.
func NewStore(width, height, chatCap int) *Store {
	if width <= 0 || height <= 0 {
		panic("world.NewStore: bounds must be > 0")
	}
	if chatCap <= 0 {
		panic("world.NewStore: chatCap must be > 0")
	}
	return &Store{
		width:   width,
		height:  height,
		chatCap: chatCap,
		now:     time.Now,
		players: make(map[string]Player),
		objects: make(map[string]WorldObject),
	}
}

// Bounds returns the grid dimensions.
func (s *Store) Bounds() (width, height int) {
	return s.width, s.height
}

// UpsertPlayer inserts or replaces the player record for p.ID.
//
// Precondition: p.ID must be non-empty.
func (s *Store) UpsertPlayer(p Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p.clone()
}

// RemovePlayer deletes the player record for id.
//
// Postcondition: Returns true if a record was removed, false if id was
// already absent.
func (s *Store) RemovePlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[id]
	delete(s.players, id)
	return ok
}

// GetPlayer returns a copy of the player record for id.
func (s *Store) GetPlayer(id string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return p.clone(), true
}

// HasPlayer reports whether a record exists for id.
func (s *Store) HasPlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[id]
	return ok
}

// PlayerCount returns the number of player records.
func (s *Store) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// ApplyMove commits a position change for id.
//
// Postcondition: Returns false and leaves all state unchanged when id is
// unknown or pos is out of bounds; otherwise the new position is committed
// and true is returned. A rejected move never partially applies.
func (s *Store) ApplyMove(id string, pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return false
	}
	if !rules.InBounds(pos.X, pos.Y, s.width, s.height) {
		return false
	}
	p.Position = pos
	s.players[id] = p
	return true
}

// AppendChat sanitizes raw content, appends it to the chat log, and enforces
// the FIFO cap by evicting the oldest entry first.
//
// Postcondition: The returned ChatMessage is the entry as stored; the chat
// log never exceeds the configured cap.
func (s *Store) AppendChat(playerName, raw string) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ChatMessage{
		PlayerName: playerName,
		Content:    rules.SanitizeChat(raw, rules.MaxChatLength),
		Timestamp:  s.now().UnixMilli(),
	}

	if len(s.chat) >= s.chatCap {
		s.chat = s.chat[len(s.chat)-s.chatCap+1:]
	}
	s.chat = append(s.chat, msg)
	return msg
}

// ChatLen returns the current chat log length.
func (s *Store) ChatLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chat)
}

// SeedObjects installs the world-object table. Intended for startup only;
// objects have no mutation path afterwards.
func (s *Store) SeedObjects(objects []WorldObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range objects {
		s.objects[obj.ID] = obj
	}
}

// Tick returns the current tick counter.
func (s *Store) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// AdvanceTick increments the tick counter by exactly one and applies
// per-tick upkeep (run energy drain/restore).
//
// Postcondition: Returns the new tick value. RunEnergy stays in
// [0, MaxRunEnergy] for every player.
func (s *Store) AdvanceTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	for id, p := range s.players {
		if p.IsRunning {
			p.RunEnergy -= runEnergyDrainPerTick
			if p.RunEnergy <= 0 {
				p.RunEnergy = 0
				p.IsRunning = false
			}
		} else if p.RunEnergy < MaxRunEnergy {
			p.RunEnergy += runEnergyRestorePerTick
			if p.RunEnergy > MaxRunEnergy {
				p.RunEnergy = MaxRunEnergy
			}
		}
		s.players[id] = p
	}
	return s.tick
}

// Snapshot returns a deep copy of the aggregate state. The copy is taken
// under the store lock, so it is an atomic, consistent view that never
// interleaves with an in-flight mutation.
func (s *Store) Snapshot() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make(map[string]Player, len(s.players))
	for id, p := range s.players {
		players[id] = p.clone()
	}
	chat := make([]ChatMessage, len(s.chat))
	copy(chat, s.chat)
	objects := make(map[string]WorldObject, len(s.objects))
	for id, obj := range s.objects {
		objects[id] = obj
	}

	return GameState{
		Tick:         s.tick,
		Players:      players,
		ChatMessages: chat,
		WorldObjects: objects,
	}
}
