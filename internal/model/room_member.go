package model

import (
	"database/sql"
	"errors"
	"time"
)

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

type MemberStatus string

const (
	MemberStatusActive MemberStatus = "ACTIVE"
	MemberStatusBanned MemberStatus = "BANNED"
	MemberStatusLeft   MemberStatus = "LEFT"
)

var (
	ErrSameMember     = errors.New("current and target member are the same")
	ErrNotAdmin       = errors.New("member is not the room admin")
	ErrMemberInactive = errors.New("member is not active")
	ErrAdminMustStay  = errors.New("admin must delegate before leaving")
)

// Member is one membership record. A user may hold many records for the
// same room over time but at most one of them is ACTIVE.
type Member struct {
	ID            int64        `db:"id" json:"member_id,string"`
	RoomID        int64        `db:"room_id" json:"room_id,string"`
	UserID        int64        `db:"user_id" json:"user_id,string"`
	Name          string       `db:"name" json:"name"`
	Role          MemberRole   `db:"role" json:"role"`
	NotifyEnabled bool         `db:"notify_enabled" json:"notify_enabled"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	BannedAt      sql.NullTime `db:"banned_at" json:"-"`
	LeftAt        sql.NullTime `db:"left_at" json:"-"`
}

// NewMember builds an ACTIVE record.
func NewMember(roomID, userID int64, name string, role MemberRole) *Member {
	return &Member{
		RoomID:        roomID,
		UserID:        userID,
		Name:          name,
		Role:          role,
		NotifyEnabled: true,
		CreatedAt:     time.Now().UTC(),
	}
}

// Status derives the lifecycle state from the timestamps.
func (m *Member) Status() MemberStatus {
	switch {
	case m.BannedAt.Valid:
		return MemberStatusBanned
	case m.LeftAt.Valid:
		return MemberStatusLeft
	default:
		return MemberStatusActive
	}
}

// IsActive checks if member is neither banned nor left
func (m *Member) IsActive() bool {
	return m.Status() == MemberStatusActive
}

// IsAdmin checks if member is the active room admin
func (m *Member) IsAdmin() bool {
	return m.IsActive() && m.Role == MemberRoleAdmin
}

// Leave moves an ACTIVE member to LEFT. activeCount is the number of ACTIVE
// members in the room including m; the admin may only leave when alone.
func (m *Member) Leave(at time.Time, activeCount int) error {
	if !m.IsActive() {
		return ErrMemberInactive
	}
	if m.Role == MemberRoleAdmin && activeCount > 1 {
		return ErrAdminMustStay
	}
	m.LeftAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

// Summary returns the reduced projection of the member.
func (m *Member) Summary() *MemberSummary {
	return &MemberSummary{
		MemberID: m.ID,
		UserID:   m.UserID,
		Name:     m.Name,
		Role:     m.Role,
	}
}

// DelegateAdmin hands the admin role from current to target.
func DelegateAdmin(current, target *Member) error {
	if current.ID == target.ID {
		return ErrSameMember
	}
	if !current.IsAdmin() {
		return ErrNotAdmin
	}
	if !target.IsActive() || target.RoomID != current.RoomID {
		return ErrMemberInactive
	}

	current.Role = MemberRoleMember
	target.Role = MemberRoleAdmin
	return nil
}

// Ban moves target to BANNED on behalf of admin.
func Ban(admin, target *Member, at time.Time) error {
	if admin.ID == target.ID {
		return ErrSameMember
	}
	if !admin.IsAdmin() {
		return ErrNotAdmin
	}
	if !target.IsActive() || target.RoomID != admin.RoomID {
		return ErrMemberInactive
	}

	target.BannedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

// MemberSummary is the reduced projection listed for non-recent participants.
type MemberSummary struct {
	MemberID int64      `db:"id" json:"member_id,string"`
	UserID   int64      `db:"user_id" json:"user_id,string"`
	Name     string     `db:"name" json:"name"`
	Role     MemberRole `db:"role" json:"role"`
}
