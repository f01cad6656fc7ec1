package request

// PendRoomRequest reserves a room id for the caller
type PendRoomRequest struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description,omitempty" binding:"omitempty,max=500"`
	Password    string `json:"password,omitempty" binding:"omitempty,max=72"`
}

// ConfirmRoomRequest turns the caller's reservation into a room
type ConfirmRoomRequest struct {
	RoomID             int64  `json:"room_id,string,omitempty"`
	Name               string `json:"name" binding:"required,max=50"`
	BackgroundImageURL string `json:"background_image_url,omitempty" binding:"omitempty,url,max=500"`
}

// UpdateRoomRequest represents a room update request.
// An empty password removes the room password.
type UpdateRoomRequest struct {
	Title              *string `json:"title,omitempty" binding:"omitempty,max=100"`
	Description        *string `json:"description,omitempty" binding:"omitempty,max=500"`
	BackgroundImageURL *string `json:"background_image_url,omitempty" binding:"omitempty,max=500"`
	Password           *string `json:"password,omitempty" binding:"omitempty,max=72"`
}

// JoinRoomRequest represents a join request
type JoinRoomRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Password string `json:"password,omitempty"`
}

// MemberTargetRequest names the member an admin action applies to
type MemberTargetRequest struct {
	MemberID int64 `json:"member_id,string" binding:"required"`
}

// ListRoomsRequest pages through the caller's rooms
type ListRoomsRequest struct {
	Limit  int `form:"limit,default=20" binding:"min=0,max=100"`
	Offset int `form:"offset" binding:"min=0"`
}

// NotifyRequest toggles push notifications for the caller
type NotifyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
