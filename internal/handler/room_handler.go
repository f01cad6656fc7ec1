package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/request"
	"github.com/go-demo/chatcore/internal/dto/response"
	"github.com/go-demo/chatcore/internal/middleware"
	"github.com/go-demo/chatcore/internal/service"
)

type RoomHandler struct {
	roomService   *service.RoomService
	detailService *service.RoomDetailService
}

func NewRoomHandler(roomService *service.RoomService, detailService *service.RoomDetailService) *RoomHandler {
	return &RoomHandler{
		roomService:   roomService,
		detailService: detailService,
	}
}

// ListMyRooms godoc
// @Summary 獲取我的聊天室
// @Description 獲取當前用戶加入的聊天室與未讀數
// @Tags 聊天室
// @Produce json
// @Security BearerAuth
// @Param limit query int false "每頁數量" default(20)
// @Param offset query int false "略過筆數" default(0)
// @Success 200 {object} response.Response{data=[]response.MyRoomResponse}
// @Router /api/v1/rooms [get]
func (h *RoomHandler) ListMyRooms(c *gin.Context) {
	var req request.ListRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	rooms, err := h.roomService.ListMyRooms(c.Request.Context(), middleware.GetUserID(c), req.Limit, req.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]*response.MyRoomResponse, len(rooms))
	for i, r := range rooms {
		resp[i] = response.NewMyRoomResponse(r)
	}
	response.Success(c, resp)
}

// Pend godoc
// @Summary 預約聊天室
// @Description 保留一個聊天室 ID，需在期限內確認
// @Tags 聊天室
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.PendRoomRequest true "聊天室資料"
// @Success 201 {object} response.Response{data=response.PendRoomResponse}
// @Failure 400 {object} response.Response
// @Router /api/v1/rooms/pending [post]
func (h *RoomHandler) Pend(c *gin.Context) {
	var req request.PendRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	roomID, err := h.roomService.Pend(c.Request.Context(), middleware.GetUserID(c), &service.PendRoomInput{
		Title:       req.Title,
		Description: req.Description,
		Password:    req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewPendRoomResponse(roomID, h.roomService.PendingTTL()))
}

// Confirm godoc
// @Summary 確認建立聊天室
// @Description 將預約的聊天室正式建立，建立者成為管理員
// @Tags 聊天室
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.ConfirmRoomRequest true "確認資料"
// @Success 201 {object} response.Response{data=response.RoomResponse}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms [post]
func (h *RoomHandler) Confirm(c *gin.Context) {
	var req request.ConfirmRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	room, err := h.roomService.Confirm(c.Request.Context(), middleware.GetUserID(c), &service.ConfirmRoomInput{
		RoomID:             req.RoomID,
		Name:               req.Name,
		BackgroundImageURL: req.BackgroundImageURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewRoomResponse(room))
}

// GetByID godoc
// @Summary 獲取聊天室
// @Tags 聊天室
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response{data=response.RoomResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id} [get]
func (h *RoomHandler) GetByID(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewRoomResponse(room))
}

// Detail godoc
// @Summary 獲取聊天室詳情
// @Description 以目前用戶視角整理最近發言者、其他成員與最近訊息
// @Tags 聊天室
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 200 {object} response.Response{data=response.RoomDetailResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/detail [get]
func (h *RoomHandler) Detail(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	detail, err := h.detailService.Execute(c.Request.Context(), middleware.GetUserID(c), roomID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewRoomDetailResponse(detail))
}

// Update godoc
// @Summary 更新聊天室
// @Description 更新聊天室資訊（需要管理員權限），空字串密碼代表移除密碼
// @Tags 聊天室
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Param request body request.UpdateRoomRequest true "更新資料"
// @Success 200 {object} response.Response{data=response.RoomResponse}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req request.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "請求格式錯誤")
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), &service.UpdateRoomInput{
		RoomID:             roomID,
		UserID:             middleware.GetUserID(c),
		Title:              req.Title,
		Description:        req.Description,
		BackgroundImageURL: req.BackgroundImageURL,
		Password:           req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewRoomResponse(room))
}

// Delete godoc
// @Summary 刪除聊天室
// @Description 刪除聊天室（僅管理員可操作）
// @Tags 聊天室
// @Security BearerAuth
// @Param id path string true "聊天室 ID"
// @Success 204
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
