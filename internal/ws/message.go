package ws

import (
	"time"

	"github.com/goccy/go-json"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> Server messages
	MessageTypeJoinRoom    MessageType = "join_room"
	MessageTypeLeaveRoom   MessageType = "leave_room"
	MessageTypeSendMessage MessageType = "send_message"
	MessageTypeMarkRead    MessageType = "mark_read"
	MessageTypePing        MessageType = "ping"

	// Server -> Client messages
	MessageTypeRoomJoined MessageType = "room_joined"
	MessageTypeRoomLeft   MessageType = "room_left"
	MessageTypeRoomEvent  MessageType = "room_event"
	MessageTypePong       MessageType = "pong"
	MessageTypeError      MessageType = "error"
	MessageTypeAck        MessageType = "ack"
)

// Message represents a WebSocket frame
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// RoomPayload names a room; used by join_room, leave_room and their replies
type RoomPayload struct {
	RoomID int64 `json:"room_id,string"`
}

// SendMessagePayload represents send message payload
type SendMessagePayload struct {
	RoomID  int64  `json:"room_id,string"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"` // text, image, file
}

// MarkReadPayload represents mark as read payload
type MarkReadPayload struct {
	RoomID    int64 `json:"room_id,string"`
	MessageID int64 `json:"message_id,string"`
}

// RoomJoinedPayload confirms a room subscription
type RoomJoinedPayload struct {
	RoomID      int64 `json:"room_id,string"`
	MemberCount int   `json:"member_count"`
}

// ErrorPayload represents error message
type ErrorPayload struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// AckPayload represents acknowledgement
type AckPayload struct {
	Success   bool  `json:"success"`
	MessageID int64 `json:"message_id,string,omitempty"`
}

// NewMessage creates a new message
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	msg := &Message{
		Type:      msgType,
		Timestamp: time.Now(),
	}
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = payloadBytes
	}
	return msg, nil
}

// NewErrorMessage creates a new error message
func NewErrorMessage(code int, kind, message string) (*Message, error) {
	return NewMessage(MessageTypeError, &ErrorPayload{
		Code:    code,
		Kind:    kind,
		Message: message,
	})
}

// ParsePayload parses message payload into the given type
func (m *Message) ParsePayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
