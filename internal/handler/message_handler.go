package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/request"
	"github.com/go-demo/chatcore/internal/dto/response"
	"github.com/go-demo/chatcore/internal/middleware"
	"github.com/go-demo/chatcore/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// SendMessage godoc
// @Summary 發送訊息
// @Description 在聊天室中發送訊息
// @Tags 訊息
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.SendMessageRequest true "訊息內容"
// @Success 201 {object} response.Response{data=response.MessageResponse}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/rooms/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), &service.SendMessageInput{
		RoomID:      roomID,
		SenderID:    middleware.GetUserID(c),
		Content:     req.Content,
		ContentType: req.Type,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewMessageResponse(msg))
}

// GetMessages godoc
// @Summary 獲取訊息列表
// @Description 由新到舊分頁，before 為上一頁的 next_cursor
// @Tags 訊息
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param before query string false "游標訊息 ID"
// @Param limit query int false "每頁數量" default(30)
// @Success 200 {object} response.Response{data=response.MessageListResponse}
// @Failure 403 {object} response.Response
// @Router /api/v1/rooms/{id}/messages [get]
func (h *MessageHandler) GetMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.CursorRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	page, err := h.messageService.ListBefore(c.Request.Context(), roomID, middleware.GetUserID(c), req.Before, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewMessageListResponse(page))
}

// Recent godoc
// @Summary 獲取最近訊息
// @Tags 訊息
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response{data=[]response.MessageResponse}
// @Failure 403 {object} response.Response
// @Router /api/v1/rooms/{id}/messages/recent [get]
func (h *MessageHandler) Recent(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	messages, err := h.messageService.Recent(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	messageResponses := make([]*response.MessageResponse, len(messages))
	for i, m := range messages {
		messageResponses[i] = response.NewMessageResponse(m)
	}

	response.Success(c, messageResponses)
}

// MarkAsRead godoc
// @Summary 標記已讀
// @Tags 訊息
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.MarkReadRequest true "最後已讀訊息"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/rooms/{id}/read [put]
func (h *MessageHandler) MarkAsRead(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), roomID, middleware.GetUserID(c), req.MessageID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "已標記為已讀", nil)
}

// GetUnreadCount godoc
// @Summary 獲取未讀數量
// @Tags 訊息
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response{data=response.UnreadResponse}
// @Failure 403 {object} response.Response
// @Router /api/v1/rooms/{id}/unread [get]
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	state, err := h.messageService.UnreadCount(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewUnreadResponse(state.LastReadMessageID, state.LatestMessageID, state.Count))
}
