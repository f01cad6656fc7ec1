package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the upper bound on message content, in code points.
const MaxContentLength = 5000

var (
	ErrEmptyContent       = errors.New("message content is empty")
	ErrContentTooLong     = errors.New("message content exceeds 5000 characters")
	ErrInvalidContentType = errors.New("unknown message content type")
)

type ContentType string

const (
	ContentTypeText  ContentType = "TEXT"
	ContentTypeImage ContentType = "IMAGE"
	ContentTypeFile  ContentType = "FILE"
)

// ParseContentType accepts either case; empty means TEXT.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToUpper(s)) {
	case "", ContentTypeText:
		return ContentTypeText, nil
	case ContentTypeImage:
		return ContentTypeImage, nil
	case ContentTypeFile:
		return ContentTypeFile, nil
	}
	return "", ErrInvalidContentType
}

type CategoryType string

const (
	CategoryNormal CategoryType = "NORMAL"
	CategorySystem CategoryType = "SYSTEM"
)

// Message is one entry of a room's log. IDs are time ordered and compared as whole values.
type Message struct {
	ID           int64        `json:"message_id,string"`
	RoomID       int64        `json:"room_id,string"`
	SenderID     int64        `json:"sender_id,string"`
	Content      string       `json:"content"`
	ContentType  ContentType  `json:"content_type"`
	CategoryType CategoryType `json:"category_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewMessage validates content and builds an unsaved message. The id is assigned on append.
func NewMessage(roomID, senderID int64, content string, contentType ContentType, category CategoryType) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	if contentType == "" {
		contentType = ContentTypeText
	}
	if category == "" {
		category = CategoryNormal
	}

	return &Message{
		RoomID:       roomID,
		SenderID:     senderID,
		Content:      content,
		ContentType:  contentType,
		CategoryType: category,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// MessageSlice is one page of a backward scan.
type MessageSlice struct {
	Messages []*Message `json:"messages"`
	HasMore  bool       `json:"has_more"`
}

// NextCursor is the id to pass as the next "before" cursor, or 0 when the page is empty.
func (s *MessageSlice) NextCursor() int64 {
	if len(s.Messages) == 0 {
		return 0
	}
	return s.Messages[len(s.Messages)-1].ID
}
