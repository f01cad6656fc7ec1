package model

import "time"

// PendingRoom is a room reservation awaiting confirmation by its creator.
type PendingRoom struct {
	RoomID       int64     `json:"room_id,string"`
	CreatorID    int64     `json:"creator_id,string"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
