package model

import (
	"database/sql"
	"time"
)

type Room struct {
	ID                 int64          `db:"id" json:"id,string"`
	Title              string         `db:"title" json:"title"`
	Description        sql.NullString `db:"description" json:"description,omitempty"`
	BackgroundImageURL sql.NullString `db:"background_image_url" json:"background_image_url,omitempty"`
	PasswordHash       sql.NullString `db:"password_hash" json:"-"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt          sql.NullTime   `db:"deleted_at" json:"-"`
}

// GetDescription returns description or empty string
func (r *Room) GetDescription() string {
	if r.Description.Valid {
		return r.Description.String
	}
	return ""
}

// GetBackgroundImageURL returns background_image_url or empty string
func (r *Room) GetBackgroundImageURL() string {
	if r.BackgroundImageURL.Valid {
		return r.BackgroundImageURL.String
	}
	return ""
}

// HasPassword checks if joining requires a password
func (r *Room) HasPassword() bool {
	return r.PasswordHash.Valid && r.PasswordHash.String != ""
}

// IsDeleted checks if room was soft deleted
func (r *Room) IsDeleted() bool {
	return r.DeletedAt.Valid
}

// RoomDetail is the viewer-centric projection of a room.
type RoomDetail struct {
	Viewer             *Member          `json:"viewer"`
	RecentParticipants []*Member        `json:"recent_participants"`
	OtherParticipants  []*MemberSummary `json:"other_participants"`
	RecentMessages     []*Message       `json:"recent_messages"`
}

// UserRoom is a room the user holds an ACTIVE membership in.
type UserRoom struct {
	Room
	Role        MemberRole `db:"my_role" json:"role"`
	MemberCount int        `db:"member_count" json:"member_count"`
	UnreadCount int64      `db:"-" json:"unread_count"`
}
