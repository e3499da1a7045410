package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/game/world"
	"github.com/gridlands/gridlands/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
	sendBuffer       = 64
	eventBuffer      = 128
)

// Event is a non-snapshot server message surfaced to the application:
// chat lines, join/leave notices, and server errors.
type Event struct {
	Type     protocol.MessageType
	Chat     *world.ChatMessage // CHAT_MESSAGE
	Player   *world.Player      // PLAYER_JOINED
	PlayerID string             // PLAYER_LEFT
	Error    string             // ERROR
}

// Peer is a connected client counterpart. It owns the websocket connection,
// keeps the Mirror current, and forwards local input tagged with the id the
// server assigned in INIT.
type Peer struct {
	conn   *websocket.Conn
	mirror *Mirror
	logger *zap.Logger

	send   chan []byte
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Dial connects to the server's websocket endpoint, waits for the INIT
// message, and starts the read/write pumps.
//
// Precondition: url must be a ws:// or wss:// endpoint URL.
// Postcondition: The returned Peer has a populated Mirror and an assigned
// player id, or a non-nil error is returned.
func Dial(url string, logger *zap.Logger) (*Peer, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	// The first frame is always INIT: assigned id plus a full snapshot.
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("reading init: %w", err)
	}
	var init protocol.InitMessage
	if err := json.Unmarshal(frame, &init); err != nil || init.Type != protocol.MsgInit {
		_ = conn.Close()
		return nil, fmt.Errorf("expected INIT, got %q", string(frame))
	}
	_ = conn.SetReadDeadline(time.Time{})

	mirror := NewMirror()
	mirror.SetIdentity(init.PlayerID)
	mirror.Replace(init.GameState)

	p := &Peer{
		conn:   conn,
		mirror: mirror,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go p.readPump()
	go p.writePump()
	return p, nil
}

// Mirror returns the locally mirrored world state.
func (p *Peer) Mirror() *Mirror {
	return p.mirror
}

// Events returns the channel of non-snapshot server messages. When the
// application falls behind, older events are dropped rather than stalling
// the read pump.
func (p *Peer) Events() <-chan Event {
	return p.events
}

// Done is closed when the connection has shut down.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Close shuts the connection down. Safe to call more than once.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// SendMove forwards a move request for this peer's own player.
func (p *Peer) SendMove(x, y int) error {
	frame, err := protocol.EncodeMove(p.mirror.PlayerID(), world.Position{X: x, Y: y})
	if err != nil {
		return err
	}
	return p.enqueue(frame)
}

// SendChat forwards a chat message.
func (p *Peer) SendChat(content string) error {
	frame, err := protocol.EncodeChat(p.mirror.PlayerID(), content)
	if err != nil {
		return err
	}
	return p.enqueue(frame)
}

// SendInteract forwards an interact request for targetID.
func (p *Peer) SendInteract(targetID string) error {
	frame, err := protocol.EncodeInteract(p.mirror.PlayerID(), targetID)
	if err != nil {
		return err
	}
	return p.enqueue(frame)
}

func (p *Peer) enqueue(frame []byte) error {
	select {
	case <-p.done:
		return fmt.Errorf("connection closed")
	case p.send <- frame:
		return nil
	default:
		return fmt.Errorf("send queue full")
	}
}

// readPump consumes server frames: STATE_UPDATE replaces the mirror
// wholesale, everything else becomes an Event.
func (p *Peer) readPump() {
	defer p.Close()

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		p.handleFrame(frame)
	}
}

func (p *Peer) handleFrame(frame []byte) {
	msgType, err := protocol.PeekType(frame)
	if err != nil {
		p.logger.Warn("unreadable server frame", zap.Error(err))
		return
	}

	switch msgType {
	case protocol.MsgStateUpdate:
		var msg protocol.StateUpdateMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			p.logger.Warn("bad state update", zap.Error(err))
			return
		}
		p.mirror.Replace(msg.GameState)

	case protocol.MsgChatMessage:
		var msg protocol.ChatBroadcastMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return
		}
		p.emit(Event{Type: msgType, Chat: &msg.Message})

	case protocol.MsgPlayerJoined:
		var msg protocol.PlayerJoinedMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return
		}
		p.emit(Event{Type: msgType, Player: &msg.Player})

	case protocol.MsgPlayerLeft:
		var msg protocol.PlayerLeftMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return
		}
		p.emit(Event{Type: msgType, PlayerID: msg.PlayerID})

	case protocol.MsgError:
		var msg protocol.ErrorMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return
		}
		p.emit(Event{Type: msgType, Error: msg.Message})

	default:
		p.logger.Debug("ignoring server frame", zap.String("type", string(msgType)))
	}
}

func (p *Peer) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		// Drop when the application is not draining events.
	}
}

// writePump sends queued frames and keepalive pings.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer p.Close()

	for {
		select {
		case <-p.done:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
