package gameserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/game/session"
	"github.com/gridlands/gridlands/internal/game/world"
	"github.com/gridlands/gridlands/internal/protocol"
)

// Dispatcher is the protocol boundary: it decodes inbound frames,
// authenticates the claimed identity against the session, and routes
// actions to the world store.
type Dispatcher struct {
	store  *world.Store
	caster *Broadcaster
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: store, caster, and logger must be non-nil.
func NewDispatcher(store *world.Store, caster *Broadcaster, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, caster: caster, logger: logger}
}

// Dispatch processes one inbound frame from sess.
//
// Decode and identity failures are answered with an ERROR envelope to the
// sender only; the connection stays open and no state is mutated. A
// well-formed but out-of-bounds MOVE is rejected silently: the prior
// position stands and no ERROR is sent (the next tick's snapshot shows the
// unchanged position).
//
// Postcondition: Returns nil on success or an error wrapping one of the
// sentinel kinds in errors.go.
func (d *Dispatcher) Dispatch(sess *session.Session, frame []byte) error {
	msg, err := protocol.DecodeClientMessage(frame)
	if err != nil {
		d.sendError(sess, "malformed message")
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// The claimed id must match the session's assigned id, and the player
	// must still exist in the store. A stale frame that raced a disconnect
	// fails the second check and is dropped here.
	if msg.PlayerID != sess.ID {
		d.sendError(sess, "player id does not match session")
		return fmt.Errorf("%w: claimed %q, session %q", ErrIdentity, msg.PlayerID, sess.ID)
	}
	if !d.store.HasPlayer(sess.ID) {
		d.sendError(sess, "unknown player")
		return fmt.Errorf("%w: player %q not in store", ErrIdentity, sess.ID)
	}

	switch msg.Type {
	case protocol.MsgMove:
		return d.handleMove(sess, msg)
	case protocol.MsgChat:
		return d.handleChat(sess, msg)
	case protocol.MsgInteract:
		// Reserved extension point: identity is validated above, no
		// store mutation is performed.
		d.logger.Debug("interact ignored",
			zap.String("player_id", sess.ID),
			zap.String("target_id", msg.TargetID),
		)
		return nil
	default:
		d.sendError(sess, fmt.Sprintf("unknown message type %q", msg.Type))
		return fmt.Errorf("%w: unknown type %q", ErrDecode, msg.Type)
	}
}

func (d *Dispatcher) handleMove(sess *session.Session, msg *protocol.ClientMessage) error {
	if msg.Position == nil {
		d.sendError(sess, "move missing position")
		return fmt.Errorf("%w: move missing position", ErrDecode)
	}
	if !d.store.ApplyMove(sess.ID, *msg.Position) {
		// Silent rejection: the client learns nothing until the next
		// snapshot shows the unchanged position.
		d.logger.Debug("move rejected",
			zap.String("player_id", sess.ID),
			zap.Int("x", msg.Position.X),
			zap.Int("y", msg.Position.Y),
		)
		return fmt.Errorf("%w: move to (%d,%d)", ErrValidation, msg.Position.X, msg.Position.Y)
	}
	// No per-action broadcast; the change rides the next tick's snapshot.
	return nil
}

func (d *Dispatcher) handleChat(sess *session.Session, msg *protocol.ClientMessage) error {
	stored := d.store.AppendChat(sess.Name, msg.Content)

	frame, err := protocol.EncodeChatBroadcast(stored)
	if err != nil {
		return fmt.Errorf("encoding chat broadcast: %w", err)
	}
	// Fan out to all sessions, sender included.
	d.caster.Broadcast(frame)
	return nil
}

func (d *Dispatcher) sendError(sess *session.Session, text string) {
	frame, err := protocol.EncodeError(text)
	if err != nil {
		d.logger.Error("encoding error message", zap.Error(err))
		return
	}
	if err := sess.Outbox.Push(frame); err != nil {
		d.logger.Warn("dropping error message",
			zap.String("player_id", sess.ID),
			zap.Error(err),
		)
	}
}
