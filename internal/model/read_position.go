package model

import "time"

// ReadPosition is the newest message id a user has seen in a room.
// A missing position is equivalent to 0.
type ReadPosition struct {
	RoomID            int64     `db:"room_id" json:"room_id,string"`
	UserID            int64     `db:"user_id" json:"user_id,string"`
	LastReadMessageID int64     `db:"last_read_message_id" json:"last_read_message_id,string"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
