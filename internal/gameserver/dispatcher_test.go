package gameserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gridlands/gridlands/internal/game/session"
	"github.com/gridlands/gridlands/internal/game/world"
	"github.com/gridlands/gridlands/internal/protocol"
)

type dispatcherFixture struct {
	store      *world.Store
	registry   *session.Registry
	dispatcher *Dispatcher
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := world.NewStore(100, 100, 100)
	registry := session.NewRegistry()
	caster := NewBroadcaster(registry, logger)
	return &dispatcherFixture{
		store:      store,
		registry:   registry,
		dispatcher: NewDispatcher(store, caster, logger),
	}
}

// join registers a player in both the store and the registry, mirroring what
// the websocket handler does on connect.
func (f *dispatcherFixture) join(t *testing.T, id, name string) *session.Session {
	t.Helper()
	f.store.UpsertPlayer(world.NewPlayer(id, name))
	sess := &session.Session{ID: id, Name: name, Outbox: session.NewOutbox(id, 16)}
	require.NoError(t, f.registry.Add(sess))
	return sess
}

// takeFrame pops one queued frame from the session's outbox, failing the test
// if none is pending.
func takeFrame(t *testing.T, sess *session.Session) []byte {
	t.Helper()
	select {
	case frame := <-sess.Outbox.Frames():
		return frame
	default:
		t.Fatalf("no frame queued for %s", sess.ID)
		return nil
	}
}

func decodeFrame(frame []byte, v any) error {
	return json.Unmarshal(frame, v)
}

func assertNoFrame(t *testing.T, sess *session.Session) {
	t.Helper()
	select {
	case frame := <-sess.Outbox.Frames():
		t.Fatalf("unexpected frame for %s: %s", sess.ID, frame)
	default:
	}
}

func TestDispatchMoveValid(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")

	frame, err := protocol.EncodeMove("p1", world.Position{X: 5, Y: 7})
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Dispatch(sess, frame))

	p, _ := f.store.GetPlayer("p1")
	assert.Equal(t, world.Position{X: 5, Y: 7}, p.Position)

	// Movement rides the tick snapshot, never a per-action broadcast.
	assertNoFrame(t, sess)
}

func TestDispatchMoveOutOfBoundsIsSilent(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")
	require.True(t, f.store.ApplyMove("p1", world.Position{X: 5, Y: 7}))

	frame, err := protocol.EncodeMove("p1", world.Position{X: 150, Y: 7})
	require.NoError(t, err)

	err = f.dispatcher.Dispatch(sess, frame)
	assert.ErrorIs(t, err, ErrValidation)

	p, _ := f.store.GetPlayer("p1")
	assert.Equal(t, world.Position{X: 5, Y: 7}, p.Position, "prior position must stand")

	// No ERROR envelope for a rejected move.
	assertNoFrame(t, sess)
}

func TestDispatchMoveMissingPosition(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")

	err := f.dispatcher.Dispatch(sess, []byte(`{"type":"MOVE","playerId":"p1"}`))
	assert.ErrorIs(t, err, ErrDecode)

	var msg protocol.ErrorMessage
	require.NoError(t, decodeFrame(takeFrame(t, sess), &msg))
	assert.Equal(t, protocol.MsgError, msg.Type)
}

func TestDispatchMalformedFrame(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")

	err := f.dispatcher.Dispatch(sess, []byte(`{"type":`))
	assert.ErrorIs(t, err, ErrDecode)

	var msg protocol.ErrorMessage
	require.NoError(t, decodeFrame(takeFrame(t, sess), &msg))
	assert.Equal(t, protocol.MsgError, msg.Type)
	assert.Equal(t, "malformed message", msg.Message)
}

func TestDispatchIdentityMismatch(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")
	f.join(t, "p2", "Bob")
	require.True(t, f.store.ApplyMove("p2", world.Position{X: 3, Y: 3}))

	// p1's session claims p2's identity.
	frame, err := protocol.EncodeMove("p2", world.Position{X: 9, Y: 9})
	require.NoError(t, err)

	err = f.dispatcher.Dispatch(sess, frame)
	assert.ErrorIs(t, err, ErrIdentity)

	var msg protocol.ErrorMessage
	require.NoError(t, decodeFrame(takeFrame(t, sess), &msg))
	assert.Equal(t, protocol.MsgError, msg.Type)

	// The impersonated player is untouched.
	p2, _ := f.store.GetPlayer("p2")
	assert.Equal(t, world.Position{X: 3, Y: 3}, p2.Position)
}

func TestDispatchStalePlayerAfterDisconnect(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")
	f.store.RemovePlayer("p1")

	frame, err := protocol.EncodeMove("p1", world.Position{X: 1, Y: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, f.dispatcher.Dispatch(sess, frame), ErrIdentity)
}

func TestDispatchChatFansOutToAllIncludingSender(t *testing.T) {
	f := newDispatcherFixture(t)
	alice := f.join(t, "p1", "Alice")
	bob := f.join(t, "p2", "Bob")

	frame, err := protocol.EncodeChat("p1", "  hello <b>world</b>!  ")
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Dispatch(alice, frame))

	for _, sess := range []*session.Session{alice, bob} {
		var msg protocol.ChatBroadcastMessage
		require.NoError(t, decodeFrame(takeFrame(t, sess), &msg))
		assert.Equal(t, protocol.MsgChatMessage, msg.Type)
		assert.Equal(t, "Alice", msg.Message.PlayerName)
		assert.Equal(t, "hello bworldb!", msg.Message.Content)
	}
	assert.Equal(t, 1, f.store.ChatLen())
}

func TestDispatchInteractIsNoOp(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")

	frame, err := protocol.EncodeInteract("p1", "tree_01")
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Dispatch(sess, frame))

	assertNoFrame(t, sess)
	assert.Equal(t, int64(0), f.store.Tick())
}

func TestDispatchUnknownType(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")

	err := f.dispatcher.Dispatch(sess, []byte(`{"type":"TELEPORT","playerId":"p1"}`))
	assert.ErrorIs(t, err, ErrDecode)

	var msg protocol.ErrorMessage
	require.NoError(t, decodeFrame(takeFrame(t, sess), &msg))
	assert.Contains(t, msg.Message, "TELEPORT")
}

func TestDispatchErrorsDoNotDisconnect(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := f.join(t, "p1", "Alice")

	// A burst of bad frames, then a good one: the session keeps working.
	for i := 0; i < 3; i++ {
		err := f.dispatcher.Dispatch(sess, []byte(fmt.Sprintf(`{"type":"BOGUS%d","playerId":"p1"}`, i)))
		assert.Error(t, err)
		takeFrame(t, sess)
	}

	frame, err := protocol.EncodeMove("p1", world.Position{X: 2, Y: 2})
	require.NoError(t, err)
	require.NoError(t, f.dispatcher.Dispatch(sess, frame))

	p, _ := f.store.GetPlayer("p1")
	assert.Equal(t, world.Position{X: 2, Y: 2}, p.Position)
}

func TestDispatchErrorKindsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrDecode, ErrIdentity))
	assert.False(t, errors.Is(ErrValidation, ErrDecode))
	assert.False(t, errors.Is(ErrDelivery, ErrValidation))
}
