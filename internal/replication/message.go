package replication

import (
	"encoding/json"
	"time"

	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
)

type MessageType string

const (
	// Guest to host
	MessageTypeJoinRequest MessageType = "JOIN_REQUEST"
	MessageTypeRequestPick MessageType = "REQUEST_PICK"
	MessageTypePong        MessageType = "PONG"
	MessageTypeLeave       MessageType = "LEAVE"

	// Host-only requests (accepted only from the hosting participant's channel)
	MessageTypeSetOrder      MessageType = "SET_ORDER"
	MessageTypeRequestUndo   MessageType = "REQUEST_UNDO"
	MessageTypeRequestSkip   MessageType = "REQUEST_SKIP"
	MessageTypeReturnToLobby MessageType = "RETURN_TO_LOBBY"

	// Host to guests
	MessageTypeUpdateParticipants MessageType = "UPDATE_PARTICIPANTS"
	MessageTypeSyncState          MessageType = "SYNC_STATE"
	MessageTypeSyncTimer          MessageType = "SYNC_TIMER"
	MessageTypePing               MessageType = "PING"
	MessageTypeRoomClosed         MessageType = "ROOM_CLOSED"
	MessageTypeError              MessageType = "ERROR"

	// Both directions (host is the source of truth)
	MessageTypeStartGame    MessageType = "START_GAME"
	MessageTypeOrderPreview MessageType = "UPDATE_ORDER_PREVIEW"
)

// Message is the wire envelope for every protocol message.
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewMessage builds an envelope around a marshalable payload. A nil payload
// produces a bare signal message (PING, LEAVE, ...).
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Message{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Encode marshals the envelope for the transport.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage unmarshals a wire envelope.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Guest to host payloads

type JoinRequestPayload struct {
	Name string `json:"name"`
}

type RequestPickPayload struct {
	PlayerID string `json:"playerId"`
}

type SetOrderPayload struct {
	Order []string `json:"order"`
}

type OrderPreviewPayload struct {
	Order []string `json:"order"`
}

// Host to guest payloads

type SyncStatePayload struct {
	State engine.State `json:"state"`
}

type UpdateParticipantsPayload struct {
	Participants []domain.Participant `json:"participants"`
}

type SyncTimerPayload struct {
	Seconds int `json:"seconds"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
