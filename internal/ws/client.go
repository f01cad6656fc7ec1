package ws

import (
	"sync"
	"time"

	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; room messages carry up to
	// 5000 characters of multi-byte text
	maxMessageSize = 32 * 1024

	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	name   string
	rooms  map[int64]bool // Subscribed rooms
	closed bool
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewClient creates a new client
func NewClient(hub *Hub, conn *websocket.Conn, userID int64, name string, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		name:   name,
		rooms:  make(map[int64]bool),
		logger: logger,
	}
}

// GetUserID returns client's user ID
func (c *Client) GetUserID() int64 {
	return c.userID
}

// GetName returns the display name carried by the client's token
func (c *Client) GetName() string {
	return c.name
}

// GetRooms returns client's subscribed rooms
func (c *Client) GetRooms() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]int64, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// IsInRoom checks if client is in a room
func (c *Client) IsInRoom(roomID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

// JoinRoom adds client to a room
func (c *Client) JoinRoom(roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = true
}

// LeaveRoom removes client from a room
func (c *Client) LeaveRoom(roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.Int64("user_id", c.userID),
					zap.Error(err),
				)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Failed to parse message",
				zap.Int64("user_id", c.userID),
				zap.Error(err),
			)
			c.sendAppError(apperrors.ErrBadRequest)
			continue
		}

		c.handleMessage(&msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages based on type
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		var payload RoomPayload
		if !c.parse(msg, &payload) {
			return
		}
		c.hub.JoinRoom(c, payload.RoomID)

	case MessageTypeLeaveRoom:
		var payload RoomPayload
		if !c.parse(msg, &payload) {
			return
		}
		c.hub.LeaveRoom(c, payload.RoomID)

	case MessageTypeSendMessage:
		var payload SendMessagePayload
		if !c.parse(msg, &payload) {
			return
		}
		c.hub.SendMessage(c, payload, msg.RequestID)

	case MessageTypeMarkRead:
		var payload MarkReadPayload
		if !c.parse(msg, &payload) {
			return
		}
		c.hub.MarkAsRead(c, payload, msg.RequestID)

	case MessageTypePing:
		pongMsg, _ := NewMessage(MessageTypePong, nil)
		pongMsg.RequestID = msg.RequestID
		c.SendMessage(pongMsg)

	default:
		c.sendError(400, string(apperrors.KindValidation), "未知的訊息類型")
	}
}

func (c *Client) parse(msg *Message, v interface{}) bool {
	if len(msg.Payload) == 0 {
		c.sendAppError(apperrors.ErrBadRequest)
		return false
	}
	if err := msg.ParsePayload(v); err != nil {
		c.sendAppError(apperrors.ErrBadRequest)
		return false
	}
	return true
}

// SendMessage queues a frame for the client; frames for a slow or closed
// client are dropped
func (c *Client) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message",
			zap.Int64("user_id", c.userID),
			zap.Error(err),
		)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("Client send buffer full",
			zap.Int64("user_id", c.userID),
		)
	}
}

func (c *Client) sendError(code int, kind, message string) {
	errMsg, _ := NewErrorMessage(code, kind, message)
	c.SendMessage(errMsg)
}

func (c *Client) sendAppError(err error) {
	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) {
		appErr = apperrors.ErrInternal
	}
	if appErr.Kind == apperrors.KindInternal {
		c.logger.Error("WebSocket request failed",
			zap.Int64("user_id", c.userID),
			zap.Error(err),
		)
	}
	c.sendError(appErr.Code, string(appErr.Kind), appErr.Message)
}

// Close closes the client's send queue; safe to call more than once
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
