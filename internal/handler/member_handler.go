package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/request"
	"github.com/go-demo/chatcore/internal/dto/response"
	"github.com/go-demo/chatcore/internal/middleware"
	"github.com/go-demo/chatcore/internal/service"
)

type MemberHandler struct {
	memberService *service.MemberService
}

func NewMemberHandler(memberService *service.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
	}
}

// Join godoc
// @Summary 加入聊天室
// @Description 以指定暱稱加入聊天室，有密碼的聊天室需提供密碼
// @Tags 成員
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.JoinRoomRequest true "加入資料"
// @Success 201 {object} response.Response{data=response.RoomMemberResponse}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/rooms/{id}/members [post]
func (h *MemberHandler) Join(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	member, err := h.memberService.Join(c.Request.Context(), &service.JoinInput{
		RoomID:   roomID,
		UserID:   middleware.GetUserID(c),
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewRoomMemberResponse(member))
}

// Leave godoc
// @Summary 離開聊天室
// @Description 離開聊天室，最後一位成員離開時聊天室會被刪除
// @Tags 成員
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/rooms/{id}/members/me [delete]
func (h *MemberHandler) Leave(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.memberService.Leave(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "已離開聊天室", nil)
}

// Me godoc
// @Summary 獲取我的成員資料
// @Tags 成員
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response{data=response.RoomMemberResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/members/me [get]
func (h *MemberHandler) Me(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	member, err := h.memberService.ReadMember(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewRoomMemberResponse(member))
}

// Admin godoc
// @Summary 獲取聊天室管理員
// @Tags 成員
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response{data=response.RoomMemberResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/admin [get]
func (h *MemberHandler) Admin(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	admin, err := h.memberService.ReadAdmin(c.Request.Context(), roomID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewRoomMemberResponse(admin))
}

// DelegateAdmin godoc
// @Summary 轉讓管理員
// @Description 將管理員身分轉讓給另一位成員（需要管理員權限）
// @Tags 成員
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.MemberTargetRequest true "目標成員"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 423 {object} response.Response
// @Router /api/v1/rooms/{id}/admin [put]
func (h *MemberHandler) DelegateAdmin(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.MemberTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	if err := h.memberService.DelegateAdmin(c.Request.Context(), roomID, middleware.GetUserID(c), req.MemberID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "已轉讓管理員", nil)
}

// Ban godoc
// @Summary 封鎖成員
// @Description 封鎖成員，被封鎖者無法再次加入（需要管理員權限）
// @Tags 成員
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.MemberTargetRequest true "目標成員"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 423 {object} response.Response
// @Router /api/v1/rooms/{id}/bans [post]
func (h *MemberHandler) Ban(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.MemberTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	if err := h.memberService.Ban(c.Request.Context(), roomID, middleware.GetUserID(c), req.MemberID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "已封鎖成員", nil)
}

// SetNotify godoc
// @Summary 設定推播通知
// @Tags 成員
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.NotifyRequest true "是否接收通知"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/members/me/notify [put]
func (h *MemberHandler) SetNotify(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	if err := h.memberService.SetNotify(c.Request.Context(), roomID, middleware.GetUserID(c), *req.Enabled); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"notify_enabled": *req.Enabled})
}
