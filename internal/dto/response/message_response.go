package response

import (
	"time"

	"github.com/go-demo/chatcore/internal/model"
)

// MessageResponse represents a message response
type MessageResponse struct {
	ID           string `json:"id"`
	RoomID       string `json:"room_id"`
	SenderID     string `json:"sender_id"`
	Content      string `json:"content"`
	ContentType  string `json:"content_type"`
	CategoryType string `json:"category_type"`
	CreatedAt    string `json:"created_at"`
}

// NewMessageResponse creates a message response from model
func NewMessageResponse(m *model.Message) *MessageResponse {
	return &MessageResponse{
		ID:           formatID(m.ID),
		RoomID:       formatID(m.RoomID),
		SenderID:     formatID(m.SenderID),
		Content:      m.Content,
		ContentType:  string(m.ContentType),
		CategoryType: string(m.CategoryType),
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

// MessageListResponse represents one page of messages, newest first
type MessageListResponse struct {
	Messages   []*MessageResponse `json:"messages"`
	HasMore    bool               `json:"has_more"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// NewMessageListResponse creates a message list response
func NewMessageListResponse(page *model.MessageSlice) *MessageListResponse {
	messageResponses := make([]*MessageResponse, len(page.Messages))
	for i, msg := range page.Messages {
		messageResponses[i] = NewMessageResponse(msg)
	}

	resp := &MessageListResponse{
		Messages: messageResponses,
		HasMore:  page.HasMore,
	}
	if page.HasMore {
		resp.NextCursor = formatID(page.NextCursor())
	}
	return resp
}

// UnreadResponse represents the caller's unread state in a room
type UnreadResponse struct {
	LastReadMessageID string `json:"last_read_message_id"`
	LatestMessageID   string `json:"latest_message_id"`
	UnreadCount       int64  `json:"unread_count"`
}

// NewUnreadResponse creates an unread response
func NewUnreadResponse(lastRead, latest, count int64) *UnreadResponse {
	return &UnreadResponse{
		LastReadMessageID: formatID(lastRead),
		LatestMessageID:   formatID(latest),
		UnreadCount:       count,
	}
}
