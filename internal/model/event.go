package model

import "time"

type RoomEventType string

const (
	RoomEventMessage      RoomEventType = "message"
	RoomEventMemberJoined RoomEventType = "member_joined"
	RoomEventMemberLeft   RoomEventType = "member_left"
	RoomEventMemberBanned RoomEventType = "member_banned"
	RoomEventAdminChanged RoomEventType = "admin_changed"
	RoomEventRoomDeleted  RoomEventType = "room_deleted"
)

// RoomEvent is fanned out to every connected client of a room.
type RoomEvent struct {
	Type       RoomEventType  `json:"type"`
	RoomID     int64          `json:"room_id,string"`
	Message    *Message       `json:"message,omitempty"`
	Member     *MemberSummary `json:"member,omitempty"`
	SenderName string         `json:"sender_name,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notification is a push request handed to the delivery service.
type Notification struct {
	Recipients []int64 `json:"recipients"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	RoomID     int64   `json:"room_id,string"`
}
