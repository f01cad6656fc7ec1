package response

import (
	"strconv"
	"time"

	"github.com/go-demo/chatcore/internal/model"
)

// PendRoomResponse carries the reserved room id
type PendRoomResponse struct {
	RoomID    string `json:"room_id"`
	ExpiresIn int    `json:"expires_in"`
}

// NewPendRoomResponse creates a pend response
func NewPendRoomResponse(roomID int64, ttl time.Duration) *PendRoomResponse {
	return &PendRoomResponse{
		RoomID:    formatID(roomID),
		ExpiresIn: int(ttl.Seconds()),
	}
}

// RoomResponse represents a room response
type RoomResponse struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	BackgroundImageURL string `json:"background_image_url"`
	HasPassword        bool   `json:"has_password"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// NewRoomResponse creates a room response from model
func NewRoomResponse(room *model.Room) *RoomResponse {
	return &RoomResponse{
		ID:                 formatID(room.ID),
		Title:              room.Title,
		Description:        room.GetDescription(),
		BackgroundImageURL: room.GetBackgroundImageURL(),
		HasPassword:        room.HasPassword(),
		CreatedAt:          room.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          room.UpdatedAt.Format(time.RFC3339),
	}
}

// MyRoomResponse is a room in the caller's room list
type MyRoomResponse struct {
	*RoomResponse
	Role        string `json:"role"`
	MemberCount int    `json:"member_count"`
	UnreadCount int64  `json:"unread_count"`
}

// NewMyRoomResponse creates a room list entry from model
func NewMyRoomResponse(r *model.UserRoom) *MyRoomResponse {
	return &MyRoomResponse{
		RoomResponse: NewRoomResponse(&r.Room),
		Role:         string(r.Role),
		MemberCount:  r.MemberCount,
		UnreadCount:  r.UnreadCount,
	}
}

// RoomMemberResponse represents a room member response
type RoomMemberResponse struct {
	MemberID      string `json:"member_id"`
	RoomID        string `json:"room_id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	NotifyEnabled bool   `json:"notify_enabled"`
	JoinedAt      string `json:"joined_at"`
}

// NewRoomMemberResponse creates a room member response from model
func NewRoomMemberResponse(m *model.Member) *RoomMemberResponse {
	return &RoomMemberResponse{
		MemberID:      formatID(m.ID),
		RoomID:        formatID(m.RoomID),
		UserID:        formatID(m.UserID),
		Name:          m.Name,
		Role:          string(m.Role),
		Status:        string(m.Status()),
		NotifyEnabled: m.NotifyEnabled,
		JoinedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

// MemberSummaryResponse is the reduced member projection
type MemberSummaryResponse struct {
	MemberID string `json:"member_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// NewMemberSummaryResponse creates a summary response from model
func NewMemberSummaryResponse(m *model.MemberSummary) *MemberSummaryResponse {
	return &MemberSummaryResponse{
		MemberID: formatID(m.MemberID),
		UserID:   formatID(m.UserID),
		Name:     m.Name,
		Role:     string(m.Role),
	}
}

// RoomDetailResponse is the viewer-centric room detail
type RoomDetailResponse struct {
	Viewer             *RoomMemberResponse      `json:"viewer"`
	RecentParticipants []*RoomMemberResponse    `json:"recent_participants"`
	OtherParticipants  []*MemberSummaryResponse `json:"other_participants"`
	RecentMessages     []*MessageResponse       `json:"recent_messages"`
}

// NewRoomDetailResponse creates a detail response from model
func NewRoomDetailResponse(d *model.RoomDetail) *RoomDetailResponse {
	resp := &RoomDetailResponse{
		Viewer:             NewRoomMemberResponse(d.Viewer),
		RecentParticipants: make([]*RoomMemberResponse, len(d.RecentParticipants)),
		OtherParticipants:  make([]*MemberSummaryResponse, len(d.OtherParticipants)),
		RecentMessages:     make([]*MessageResponse, len(d.RecentMessages)),
	}
	for i, m := range d.RecentParticipants {
		resp.RecentParticipants[i] = NewRoomMemberResponse(m)
	}
	for i, m := range d.OtherParticipants {
		resp.OtherParticipants[i] = NewMemberSummaryResponse(m)
	}
	for i, m := range d.RecentMessages {
		resp.RecentMessages[i] = NewMessageResponse(m)
	}
	return resp
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
