package ws

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"github.com/go-demo/chatcore/internal/service"
	"go.uber.org/zap"
)

const (
	requestTimeout  = 5 * time.Second
	eventBufferSize = 256
)

// SendLimiter throttles message sends per key.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Membership answers who may subscribe to a room.
type Membership interface {
	IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error)
	CountActive(ctx context.Context, roomID int64) (int, error)
}

// Messenger is the slice of the message service the socket needs.
type Messenger interface {
	Send(ctx context.Context, input *service.SendMessageInput) (*model.Message, error)
	MarkRead(ctx context.Context, roomID, userID, messageID int64) error
}

// Hub maintains the set of active clients and fans room events out to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients by room: roomID -> clients
	rooms map[int64]map[*Client]bool

	// Clients by user: userID -> clients (supports multiple connections)
	users map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Room events arriving from the broker
	events chan *model.RoomEvent

	// Closed once Run returns
	done chan struct{}

	mu sync.RWMutex

	members  Membership
	messages Messenger
	sends    SendLimiter
	logger   *zap.Logger
}

// NewHub creates a new Hub
func NewHub(members Membership, messages Messenger, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		users:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *model.RoomEvent, eventBufferSize),
		done:       make(chan struct{}),
		members:    members,
		messages:   messages,
		logger:     logger,
	}
}

// LimitSends throttles send_message frames per user. Call before Run.
func (h *Hub) LimitSends(l SendLimiter) {
	h.sends = l
}

// Run serves register, unregister and delivery until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.events:
			h.deliver(event)
		}
	}
}

// Register hands a freshly upgraded client to the hub. It reports false once
// the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister detaches a client; a no-op after the hub has stopped
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver queues a room event for the local subscribers of its room.
// Events are dropped when the queue is full.
func (h *Hub) Deliver(event *model.RoomEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("Room event dropped, hub queue full",
			zap.Int64("room_id", event.RoomID),
			zap.String("type", string(event.Type)),
		)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.users[client.userID] == nil {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true
	metrics.WebSocketConnections.Inc()

	h.logger.Info("Client connected",
		zap.Int64("user_id", client.userID),
		zap.String("name", client.name),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	h.removeLocked(client)
	h.mu.Unlock()

	client.Close()
	metrics.WebSocketConnections.Dec()

	h.logger.Info("Client disconnected",
		zap.Int64("user_id", client.userID),
		zap.String("name", client.name),
	)
}

// removeLocked drops client from every index. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)

	if userClients, ok := h.users[client.userID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.users, client.userID)
		}
	}

	for _, roomID := range client.GetRooms() {
		h.unsubscribeLocked(client, roomID)
	}
}

func (h *Hub) unsubscribeLocked(client *Client, roomID int64) {
	if roomClients, ok := h.rooms[roomID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		h.removeLocked(client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
		metrics.WebSocketConnections.Dec()
	}
	h.logger.Info("Hub stopped", zap.Int("closed_clients", len(clients)))
}

// JoinRoom subscribes a client to a room it is an active member of
func (h *Hub) JoinRoom(client *Client, roomID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	isMember, err := h.members.IsActiveMember(ctx, roomID, client.userID)
	if err != nil {
		client.sendAppError(err)
		return
	}
	if !isMember {
		client.sendAppError(apperrors.ErrNotMember)
		return
	}

	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	h.mu.Unlock()

	client.JoinRoom(roomID)

	count, err := h.members.CountActive(ctx, roomID)
	if err != nil {
		h.logger.Warn("Failed to count members", zap.Int64("room_id", roomID), zap.Error(err))
	}

	joinedMsg, _ := NewMessage(MessageTypeRoomJoined, &RoomJoinedPayload{
		RoomID:      roomID,
		MemberCount: count,
	})
	client.SendMessage(joinedMsg)

	h.logger.Debug("Client joined room",
		zap.Int64("user_id", client.userID),
		zap.Int64("room_id", roomID),
	)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, roomID int64) {
	h.mu.Lock()
	h.unsubscribeLocked(client, roomID)
	h.mu.Unlock()

	client.LeaveRoom(roomID)

	leftMsg, _ := NewMessage(MessageTypeRoomLeft, &RoomPayload{RoomID: roomID})
	client.SendMessage(leftMsg)

	h.logger.Debug("Client left room",
		zap.Int64("user_id", client.userID),
		zap.Int64("room_id", roomID),
	)
}

// SendMessage appends a message on behalf of the client. The broadcast comes
// back through the broker like any other room event; the sender only gets an ack.
func (h *Hub) SendMessage(client *Client, payload SendMessagePayload, requestID string) {
	if !client.IsInRoom(payload.RoomID) {
		client.sendAppError(apperrors.ErrNotMember)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if !h.allowSend(ctx, client) {
		client.sendAppError(apperrors.ErrTooManyRequests)
		return
	}

	msg, err := h.messages.Send(ctx, &service.SendMessageInput{
		RoomID:      payload.RoomID,
		SenderID:    client.userID,
		Content:     payload.Content,
		ContentType: payload.Type,
	})
	if err != nil {
		client.sendAppError(err)
		return
	}

	ackMsg, _ := NewMessage(MessageTypeAck, &AckPayload{
		Success:   true,
		MessageID: msg.ID,
	})
	ackMsg.RequestID = requestID
	client.SendMessage(ackMsg)
}

// allowSend fails open when the limiter errors.
func (h *Hub) allowSend(ctx context.Context, client *Client) bool {
	if h.sends == nil {
		return true
	}
	allowed, err := h.sends.Allow(ctx, "ws:send:"+strconv.FormatInt(client.userID, 10))
	if err != nil {
		h.logger.Warn("Send rate limiter failed", zap.Error(err))
		return true
	}
	if !allowed {
		h.logger.Debug("Send rate limited", zap.Int64("user_id", client.userID))
	}
	return allowed
}

// MarkAsRead records the client's read position
func (h *Hub) MarkAsRead(client *Client, payload MarkReadPayload, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.messages.MarkRead(ctx, payload.RoomID, client.userID, payload.MessageID); err != nil {
		client.sendAppError(err)
		return
	}

	ackMsg, _ := NewMessage(MessageTypeAck, &AckPayload{
		Success:   true,
		MessageID: payload.MessageID,
	})
	ackMsg.RequestID = requestID
	client.SendMessage(ackMsg)
}

func (h *Hub) deliver(event *model.RoomEvent) {
	msg, err := NewMessage(MessageTypeRoomEvent, event)
	if err != nil {
		h.logger.Error("Failed to encode room event", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[event.RoomID]))
	for client := range h.rooms[event.RoomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.SendMessage(msg)
	}

	// 離開或被封鎖的成員不再收到後續事件
	switch event.Type {
	case model.RoomEventMemberLeft, model.RoomEventMemberBanned:
		if event.Member != nil {
			h.dropUser(event.RoomID, event.Member.UserID)
		}
	case model.RoomEventRoomDeleted:
		h.dropRoom(event.RoomID)
	}
}

func (h *Hub) dropUser(roomID, userID int64) {
	h.mu.Lock()
	var dropped []*Client
	for client := range h.rooms[roomID] {
		if client.userID == userID {
			dropped = append(dropped, client)
			h.unsubscribeLocked(client, roomID)
		}
	}
	h.mu.Unlock()

	for _, client := range dropped {
		client.LeaveRoom(roomID)
	}
}

func (h *Hub) dropRoom(roomID int64) {
	h.mu.Lock()
	clients := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()

	for client := range clients {
		client.LeaveRoom(roomID)
	}
}

// GetOnlineUsers returns online user IDs
func (h *Hub) GetOnlineUsers() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userIDs := make([]int64, 0, len(h.users))
	for userID := range h.users {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// IsUserOnline checks if a user is online
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// GetRoomClients returns the number of clients in a room
func (h *Hub) GetRoomClients(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// GetStats returns hub statistics
func (h *Hub) GetStats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]int{
		"total_clients": len(h.clients),
		"online_users":  len(h.users),
		"active_rooms":  len(h.rooms),
	}
}
