package ws

import (
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

func createTestClient(userID int64, name string) *Client {
	return &Client{
		send:   make(chan []byte, 256),
		userID: userID,
		name:   name,
		rooms:  make(map[int64]bool),
		logger: zap.NewNop(),
	}
}

// nextFrame pops one queued frame, failing if none is waiting.
func nextFrame(t *testing.T, client *Client) *Message {
	t.Helper()

	select {
	case data, ok := <-client.send:
		if !ok {
			t.Fatal("Expected a frame, send channel closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal frame: %v", err)
		}
		return &msg
	default:
		t.Fatal("Expected a frame in the send channel")
	}
	return nil
}

func expectNoFrame(t *testing.T, client *Client) {
	t.Helper()

	select {
	case data := <-client.send:
		t.Errorf("Expected no frame, got %s", data)
	default:
	}
}

func expectErrorFrame(t *testing.T, client *Client, code int) *ErrorPayload {
	t.Helper()

	msg := nextFrame(t, client)
	if msg.Type != MessageTypeError {
		t.Fatalf("Expected error frame, got %s", msg.Type)
	}
	var payload ErrorPayload
	if err := msg.ParsePayload(&payload); err != nil {
		t.Fatalf("Failed to parse error payload: %v", err)
	}
	if payload.Code != code {
		t.Errorf("Expected code %d, got %d (%s)", code, payload.Code, payload.Message)
	}
	return &payload
}

func TestClient_Identity(t *testing.T) {
	client := createTestClient(123, "alice")

	if client.GetUserID() != 123 {
		t.Errorf("Expected user ID 123, got %d", client.GetUserID())
	}
	if client.GetName() != "alice" {
		t.Errorf("Expected name 'alice', got '%s'", client.GetName())
	}
}

func TestClient_JoinAndLeaveRoom(t *testing.T) {
	client := createTestClient(123, "alice")

	if client.IsInRoom(1) {
		t.Error("Expected client not to be in room initially")
	}

	client.JoinRoom(1)
	client.JoinRoom(1)
	client.JoinRoom(2)

	if !client.IsInRoom(1) || !client.IsInRoom(2) {
		t.Error("Expected client to be in rooms 1 and 2")
	}
	if rooms := client.GetRooms(); len(rooms) != 2 {
		t.Errorf("Expected 2 rooms (idempotent join), got %d", len(rooms))
	}

	client.LeaveRoom(1)
	client.LeaveRoom(1)
	client.LeaveRoom(99)

	if client.IsInRoom(1) {
		t.Error("Expected client not to be in room 1")
	}
	if rooms := client.GetRooms(); len(rooms) != 1 || rooms[0] != 2 {
		t.Errorf("Expected only room 2, got %v", rooms)
	}
}

func TestClient_SendMessage(t *testing.T) {
	client := createTestClient(123, "alice")

	msg, _ := NewMessage(MessageTypeRoomJoined, &RoomJoinedPayload{RoomID: 1, MemberCount: 3})
	client.SendMessage(msg)

	received := nextFrame(t, client)
	if received.Type != MessageTypeRoomJoined {
		t.Errorf("Expected message type '%s', got '%s'", MessageTypeRoomJoined, received.Type)
	}
}

func TestClient_SendMessage_BufferFull(t *testing.T) {
	client := createTestClient(123, "alice")
	client.send = make(chan []byte, 1)

	msg, _ := NewMessage(MessageTypePong, nil)

	client.SendMessage(msg)
	// must not block
	client.SendMessage(msg)

	nextFrame(t, client)
	expectNoFrame(t, client)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := createTestClient(123, "alice")

	client.Close()
	client.Close()

	msg, _ := NewMessage(MessageTypePong, nil)
	client.SendMessage(msg) // dropped, no panic on closed channel

	if _, ok := <-client.send; ok {
		t.Error("Expected send channel closed")
	}
}

func TestClient_ConcurrentRoomOperations(t *testing.T) {
	client := createTestClient(123, "alice")

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			client.JoinRoom(1)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			client.LeaveRoom(1)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = client.IsInRoom(1)
			_ = client.GetRooms()
		}
		done <- true
	}()

	for i := 0; i < 3; i++ {
		<-done
	}
}

func TestClient_HandleMessage_Ping(t *testing.T) {
	client := createTestClient(123, "alice")

	client.handleMessage(&Message{Type: MessageTypePing, RequestID: "p-1"})

	msg := nextFrame(t, client)
	if msg.Type != MessageTypePong || msg.RequestID != "p-1" {
		t.Errorf("Expected pong for p-1, got %s/%s", msg.Type, msg.RequestID)
	}
}

func TestClient_HandleMessage_Rejections(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{"unknown type", &Message{Type: "typing"}},
		{"missing payload", &Message{Type: MessageTypeJoinRoom}},
		{"bad payload", &Message{Type: MessageTypeSendMessage, Payload: json.RawMessage(`{"room_id":`)}},
		{"bad mark read", &Message{Type: MessageTypeMarkRead, Payload: json.RawMessage(`[]`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := createTestClient(123, "alice")
			client.handleMessage(tt.msg)

			payload := expectErrorFrame(t, client, 400)
			if payload.Kind != "validation" {
				t.Errorf("Expected kind validation, got %s", payload.Kind)
			}
		})
	}
}
