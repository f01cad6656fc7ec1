package ws

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/response"
	"github.com/go-demo/chatcore/internal/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler. An empty origin list or "*"
// accepts any origin.
func NewHandler(hub *Hub, allowOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowOrigins []string) func(r *http.Request) bool {
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowOrigins, origin)
	}
}

// ServeWS handles WebSocket connection requests
// @Summary WebSocket 連線
// @Description 建立 WebSocket 連線，訂閱聊天室事件並收發訊息
// @Tags WebSocket
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} response.Response
// @Router /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	name := middleware.GetUserName(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade WebSocket",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}

	client := NewClient(h.hub, conn, userID, name, h.logger)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket hub statistics
// @Summary 獲取 WebSocket 統計資訊
// @Description 獲取 WebSocket 連線統計資訊
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/ws/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	response.Success(c, h.hub.GetStats())
}

// IsUserOnline reports whether the caller has at least one live connection
// @Summary 檢查是否在線
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/ws/online [get]
func (h *Handler) IsUserOnline(c *gin.Context) {
	userID := middleware.GetUserID(c)
	response.Success(c, gin.H{
		"online": h.hub.IsUserOnline(userID),
	})
}
