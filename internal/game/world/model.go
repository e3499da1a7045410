// Package world defines the canonical game state model and the Store that
// owns all mutable world data for the tick server.
package world

// Position is a grid cell. Valid coordinates are [0, width) x [0, height).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Item is an inventory entry. The core defines no item behaviour; items are
// opaque payload carried for the client.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Player is the authoritative record for one connected player.
type Player struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Position  Position       `json:"position"`
	IsRunning bool           `json:"isRunning"`
	RunEnergy float64        `json:"runEnergy"`
	Inventory []Item         `json:"inventory"`
	Skills    map[string]int `json:"skills"`
}

// MaxRunEnergy is the upper bound for Player.RunEnergy.
const MaxRunEnergy = 100.0

// defaultSkills are the skills seeded on every new player. All start at
// zero except hitpoints.
var defaultSkills = []string{
	"attack", "strength", "defence", "mining", "woodcutting", "fishing",
}

// NewPlayer creates a default player at the origin with zeroed skills
// (hitpoints 10), an empty inventory, and full run energy.
//
// Precondition: id must be non-empty.
func NewPlayer(id, name string) Player {
	skills := make(map[string]int, len(defaultSkills)+1)
	for _, s := range defaultSkills {
		skills[s] = 0
	}
	skills["hitpoints"] = 10

	return Player{
		ID:        id,
		Name:      name,
		Position:  Position{X: 0, Y: 0},
		RunEnergy: MaxRunEnergy,
		Inventory: []Item{},
		Skills:    skills,
	}
}

// clone returns a deep copy so snapshots never alias live state.
func (p Player) clone() Player {
	cp := p
	cp.Inventory = make([]Item, len(p.Inventory))
	copy(cp.Inventory, p.Inventory)
	cp.Skills = make(map[string]int, len(p.Skills))
	for k, v := range p.Skills {
		cp.Skills[k] = v
	}
	return cp
}

// ChatMessage is a single chat log entry. Immutable once created.
type ChatMessage struct {
	PlayerName string `json:"playerName"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
}

// WorldObject is static or semi-static scenery. No mutation path exists in
// this core; objects are loaded from content files at startup.
type WorldObject struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

// GameState is the aggregate snapshot broadcast on every tick.
type GameState struct {
	Tick         int64                  `json:"tick"`
	Players      map[string]Player      `json:"players"`
	ChatMessages []ChatMessage          `json:"chatMessages"`
	WorldObjects map[string]WorldObject `json:"worldObjects"`
}
