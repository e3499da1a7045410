package world

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestStore() *Store {
	s := NewStore(100, 100, 100)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestNewStorePanicsOnBadArgs(t *testing.T) {
	assert.Panics(t, func() { NewStore(0, 100, 100) })
	assert.Panics(t, func() { NewStore(100, -1, 100) })
	assert.Panics(t, func() { NewStore(100, 100, 0) })
}

func TestUpsertAndGetPlayer(t *testing.T) {
	s := newTestStore()
	s.UpsertPlayer(NewPlayer("p1", "Alice"))

	p, ok := s.GetPlayer("p1")
	require.True(t, ok)
	assert.Equal(t, "Alice", p.Name)
	assert.True(t, s.HasPlayer("p1"))
	assert.Equal(t, 1, s.PlayerCount())

	_, ok = s.GetPlayer("unknown")
	assert.False(t, ok)
}

func TestRemovePlayerIdempotent(t *testing.T) {
	s := newTestStore()
	s.UpsertPlayer(NewPlayer("p1", "Alice"))

	assert.True(t, s.RemovePlayer("p1"))
	assert.False(t, s.RemovePlayer("p1"))
	assert.Equal(t, 0, s.PlayerCount())
}

func TestApplyMoveValid(t *testing.T) {
	s := newTestStore()
	s.UpsertPlayer(NewPlayer("p1", "Alice"))

	require.True(t, s.ApplyMove("p1", Position{X: 5, Y: 7}))

	p, _ := s.GetPlayer("p1")
	assert.Equal(t, Position{X: 5, Y: 7}, p.Position)
}

func TestApplyMoveRejectedLeavesPositionUnchanged(t *testing.T) {
	s := newTestStore()
	s.UpsertPlayer(NewPlayer("p1", "Alice"))
	require.True(t, s.ApplyMove("p1", Position{X: 5, Y: 7}))

	rejected := []Position{
		{X: 100, Y: 7},
		{X: 5, Y: 100},
		{X: -1, Y: 7},
		{X: 5, Y: -1},
		{X: 150, Y: 150},
	}
	for _, pos := range rejected {
		assert.False(t, s.ApplyMove("p1", pos), "move to (%d,%d) must be rejected", pos.X, pos.Y)
		p, _ := s.GetPlayer("p1")
		assert.Equal(t, Position{X: 5, Y: 7}, p.Position)
	}
}

func TestApplyMoveUnknownPlayer(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.ApplyMove("ghost", Position{X: 1, Y: 1}))
}

func TestAppendChatSanitizes(t *testing.T) {
	s := newTestStore()
	msg := s.AppendChat("Alice", "  hello <script>world</script>!  ")

	assert.Equal(t, "Alice", msg.PlayerName)
	assert.Equal(t, "hello scriptworldscript!", msg.Content)
	assert.Equal(t, int64(1700000000000), msg.Timestamp)
	assert.Equal(t, 1, s.ChatLen())
}

func TestAppendChatEvictsOldestFirst(t *testing.T) {
	s := newTestStore()
	for i := 1; i <= 105; i++ {
		s.AppendChat("Alice", fmt.Sprintf("m%d", i))
	}

	snap := s.Snapshot()
	require.Len(t, snap.ChatMessages, 100)
	assert.Equal(t, "m6", snap.ChatMessages[0].Content)
	assert.Equal(t, "m105", snap.ChatMessages[99].Content)
	for i, msg := range snap.ChatMessages {
		assert.Equal(t, fmt.Sprintf("m%d", i+6), msg.Content)
	}
}

func TestAdvanceTickIncrementsByOne(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, int64(0), s.Tick())
	assert.Equal(t, int64(1), s.AdvanceTick())
	assert.Equal(t, int64(2), s.AdvanceTick())
	assert.Equal(t, int64(2), s.Tick())
}

func TestAdvanceTickDrainsRunEnergy(t *testing.T) {
	s := newTestStore()
	p := NewPlayer("p1", "Alice")
	p.IsRunning = true
	p.RunEnergy = 2.0
	s.UpsertPlayer(p)

	s.AdvanceTick()
	got, _ := s.GetPlayer("p1")
	assert.Equal(t, 1.0, got.RunEnergy)
	assert.True(t, got.IsRunning)

	s.AdvanceTick()
	got, _ = s.GetPlayer("p1")
	assert.Equal(t, 0.0, got.RunEnergy)
	assert.False(t, got.IsRunning, "running stops when energy is exhausted")

	s.AdvanceTick()
	got, _ = s.GetPlayer("p1")
	assert.Equal(t, 0.5, got.RunEnergy, "energy restores while not running")
}

func TestAdvanceTickRestoreClampsAtMax(t *testing.T) {
	s := newTestStore()
	p := NewPlayer("p1", "Alice")
	p.RunEnergy = MaxRunEnergy - 0.2
	s.UpsertPlayer(p)

	s.AdvanceTick()
	got, _ := s.GetPlayer("p1")
	assert.Equal(t, MaxRunEnergy, got.RunEnergy)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestStore()
	s.UpsertPlayer(NewPlayer("p1", "Alice"))
	s.AppendChat("Alice", "hi")
	s.SeedObjects([]WorldObject{{ID: "tree_01", Type: "tree", Position: Position{X: 3, Y: 4}}})

	snap := s.Snapshot()

	// Mutating the snapshot must not leak back into the store.
	p := snap.Players["p1"]
	p.Position = Position{X: 99, Y: 99}
	p.Skills["attack"] = 42
	snap.Players["p1"] = p
	snap.ChatMessages[0].Content = "tampered"
	delete(snap.WorldObjects, "tree_01")

	fresh := s.Snapshot()
	assert.Equal(t, Position{X: 0, Y: 0}, fresh.Players["p1"].Position)
	assert.Equal(t, 0, fresh.Players["p1"].Skills["attack"])
	assert.Equal(t, "hi", fresh.ChatMessages[0].Content)
	assert.Contains(t, fresh.WorldObjects, "tree_01")
}

func TestSnapshotReflectsRemoval(t *testing.T) {
	s := newTestStore()
	s.UpsertPlayer(NewPlayer("p1", "Alice"))
	s.UpsertPlayer(NewPlayer("p2", "Bob"))
	s.RemovePlayer("p1")

	snap := s.Snapshot()
	assert.NotContains(t, snap.Players, "p1")
	assert.Contains(t, snap.Players, "p2")
}

func TestPropertyPositionsAlwaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, 50).Draw(t, "w")
		h := rapid.IntRange(1, 50).Draw(t, "h")
		s := NewStore(w, h, 10)
		s.UpsertPlayer(NewPlayer("p1", "Alice"))

		moves := rapid.IntRange(1, 40).Draw(t, "moves")
		for i := 0; i < moves; i++ {
			x := rapid.IntRange(-10, 60).Draw(t, "x")
			y := rapid.IntRange(-10, 60).Draw(t, "y")
			s.ApplyMove("p1", Position{X: x, Y: y})

			p, ok := s.GetPlayer("p1")
			if !ok {
				t.Fatal("player vanished")
			}
			if p.Position.X < 0 || p.Position.X >= w || p.Position.Y < 0 || p.Position.Y >= h {
				t.Fatalf("position (%d,%d) escaped %dx%d grid", p.Position.X, p.Position.Y, w, h)
			}
		}
	})
}

func TestPropertyChatRetainsMostRecentSuffix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cap := rapid.IntRange(1, 20).Draw(t, "cap")
		s := NewStore(10, 10, cap)

		total := rapid.IntRange(0, 60).Draw(t, "total")
		var sent []string
		for i := 0; i < total; i++ {
			content := fmt.Sprintf("msg %d", i)
			s.AppendChat("p", content)
			sent = append(sent, content)
		}

		snap := s.Snapshot()
		if len(snap.ChatMessages) > cap {
			t.Fatalf("chat length %d exceeds cap %d", len(snap.ChatMessages), cap)
		}
		expect := sent
		if len(expect) > cap {
			expect = expect[len(expect)-cap:]
		}
		if len(snap.ChatMessages) != len(expect) {
			t.Fatalf("retained %d messages, want %d", len(snap.ChatMessages), len(expect))
		}
		for i, msg := range snap.ChatMessages {
			if msg.Content != expect[i] {
				t.Fatalf("chat[%d] = %q, want %q", i, msg.Content, expect[i])
			}
		}
	})
}
