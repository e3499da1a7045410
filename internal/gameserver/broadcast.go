package gameserver

import (
	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/game/session"
)

// Broadcaster fans frames out to every live session's outbox. A failed push
// to one recipient (closed or saturated outbox) is logged and never prevents
// delivery to the remaining recipients.
type Broadcaster struct {
	sessions *session.Registry
	logger   *zap.Logger
}

// NewBroadcaster creates a Broadcaster over the given registry.
//
// Precondition: sessions and logger must be non-nil.
func NewBroadcaster(sessions *session.Registry, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{sessions: sessions, logger: logger}
}

// Broadcast pushes frame to every live session.
func (b *Broadcaster) Broadcast(frame []byte) {
	b.BroadcastExcept(frame, "")
}

// BroadcastExcept pushes frame to every live session except exceptID.
// Pass an empty exceptID to reach everyone.
func (b *Broadcaster) BroadcastExcept(frame []byte, exceptID string) {
	for _, sess := range b.sessions.All() {
		if sess.ID == exceptID {
			continue
		}
		if err := sess.Outbox.Push(frame); err != nil {
			b.logger.Warn("dropping frame for session",
				zap.String("player_id", sess.ID),
				zap.Error(err),
			)
		}
	}
}

// Send pushes frame to the single session identified by playerID.
//
// Postcondition: Returns ErrDelivery (wrapped) when the session is gone or
// its outbox rejects the frame.
func (b *Broadcaster) Send(playerID string, frame []byte) error {
	sess, ok := b.sessions.Get(playerID)
	if !ok {
		return ErrDelivery
	}
	if err := sess.Outbox.Push(frame); err != nil {
		return ErrDelivery
	}
	return nil
}
