// Package protocol defines the JSON message envelopes exchanged between the
// tick server and its peers. Inbound envelopes carry a claimed player id that
// the dispatcher authenticates against the session; outbound envelopes are
// one struct per message type, discriminated by the "type" field.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gridlands/gridlands/internal/game/world"
)

// MessageType discriminates wire envelopes.
type MessageType string

const (
	// Client -> Server
	MsgMove     MessageType = "MOVE"
	MsgChat     MessageType = "CHAT"
	MsgInteract MessageType = "INTERACT"

	// Server -> Client
	MsgInit         MessageType = "INIT"
	MsgStateUpdate  MessageType = "STATE_UPDATE"
	MsgPlayerJoined MessageType = "PLAYER_JOINED"
	MsgPlayerLeft   MessageType = "PLAYER_LEFT"
	MsgChatMessage  MessageType = "CHAT_MESSAGE"
	MsgError        MessageType = "ERROR"
)

// ClientMessage is the single inbound envelope shape. Which payload fields
// are meaningful depends on Type: MOVE uses Position, CHAT uses Content,
// INTERACT uses TargetID.
type ClientMessage struct {
	Type     MessageType     `json:"type"`
	PlayerID string          `json:"playerId"`
	Position *world.Position `json:"position,omitempty"`
	Content  string          `json:"content,omitempty"`
	TargetID string          `json:"targetId,omitempty"`
}

// DecodeClientMessage parses an inbound frame.
//
// Postcondition: Returns a non-nil message with a non-empty type, or an
// error for malformed payloads.
func DecodeClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding client message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("client message missing type")
	}
	return &msg, nil
}

// InitMessage is sent once, immediately after a connection finishes joining.
type InitMessage struct {
	Type      MessageType     `json:"type"`
	PlayerID  string          `json:"playerId"`
	GameState world.GameState `json:"gameState"`
}

// StateUpdateMessage carries the full snapshot broadcast on every tick.
type StateUpdateMessage struct {
	Type      MessageType     `json:"type"`
	GameState world.GameState `json:"gameState"`
}

// PlayerJoinedMessage is sent once per join to all other sessions.
type PlayerJoinedMessage struct {
	Type   MessageType  `json:"type"`
	Player world.Player `json:"player"`
}

// PlayerLeftMessage is sent once per disconnect to all remaining sessions.
type PlayerLeftMessage struct {
	Type     MessageType `json:"type"`
	PlayerID string      `json:"playerId"`
}

// ChatBroadcastMessage is sent once per accepted chat to all sessions.
type ChatBroadcastMessage struct {
	Type    MessageType       `json:"type"`
	Message world.ChatMessage `json:"message"`
}

// ErrorMessage is sent only to the offending session.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// EncodeInit marshals an INIT envelope.
func EncodeInit(playerID string, state world.GameState) ([]byte, error) {
	return json.Marshal(InitMessage{Type: MsgInit, PlayerID: playerID, GameState: state})
}

// EncodeStateUpdate marshals a STATE_UPDATE envelope.
func EncodeStateUpdate(state world.GameState) ([]byte, error) {
	return json.Marshal(StateUpdateMessage{Type: MsgStateUpdate, GameState: state})
}

// EncodePlayerJoined marshals a PLAYER_JOINED envelope.
func EncodePlayerJoined(player world.Player) ([]byte, error) {
	return json.Marshal(PlayerJoinedMessage{Type: MsgPlayerJoined, Player: player})
}

// EncodePlayerLeft marshals a PLAYER_LEFT envelope.
func EncodePlayerLeft(playerID string) ([]byte, error) {
	return json.Marshal(PlayerLeftMessage{Type: MsgPlayerLeft, PlayerID: playerID})
}

// EncodeChatBroadcast marshals a CHAT_MESSAGE envelope.
func EncodeChatBroadcast(msg world.ChatMessage) ([]byte, error) {
	return json.Marshal(ChatBroadcastMessage{Type: MsgChatMessage, Message: msg})
}

// EncodeError marshals an ERROR envelope.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(ErrorMessage{Type: MsgError, Message: message})
}

// EncodeMove marshals a MOVE envelope. Used by peers.
func EncodeMove(playerID string, pos world.Position) ([]byte, error) {
	return json.Marshal(ClientMessage{Type: MsgMove, PlayerID: playerID, Position: &pos})
}

// EncodeChat marshals a CHAT envelope. Used by peers.
func EncodeChat(playerID, content string) ([]byte, error) {
	return json.Marshal(ClientMessage{Type: MsgChat, PlayerID: playerID, Content: content})
}

// EncodeInteract marshals an INTERACT envelope. Used by peers.
func EncodeInteract(playerID, targetID string) ([]byte, error) {
	return json.Marshal(ClientMessage{Type: MsgInteract, PlayerID: playerID, TargetID: targetID})
}

// PeekType extracts the type discriminator from a server frame without
// committing to a payload shape. Used by peers to pick the right decode.
func PeekType(data []byte) (MessageType, error) {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("decoding message type: %w", err)
	}
	if probe.Type == "" {
		return "", fmt.Errorf("message missing type")
	}
	return probe.Type, nil
}
