package request

// SendMessageRequest represents a message sending request
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type,omitempty" binding:"omitempty,oneof=text image file TEXT IMAGE FILE"` // default: text
}

// MarkReadRequest records the last message the caller has seen
type MarkReadRequest struct {
	MessageID int64 `json:"message_id,string" binding:"required"`
}

// CursorRequest represents backward paging parameters
type CursorRequest struct {
	Before int64 `form:"before"`
	Limit  int   `form:"limit,default=30" binding:"min=0,max=100"`
}
