package handler

import "github.com/gin-gonic/gin"

// RegisterRoomRoutes mounts every room-scoped endpoint on rooms. sendLimit
// guards message sending and may be nil.
func RegisterRoomRoutes(rooms *gin.RouterGroup, room *RoomHandler, member *MemberHandler, message *MessageHandler, sendLimit gin.HandlerFunc) {
	rooms.GET("", room.ListMyRooms)
	rooms.POST("/pending", room.Pend)
	rooms.POST("", room.Confirm)
	rooms.GET("/:id", room.GetByID)
	rooms.PUT("/:id", room.Update)
	rooms.DELETE("/:id", room.Delete)
	rooms.GET("/:id/detail", room.Detail)

	rooms.POST("/:id/members", member.Join)
	rooms.GET("/:id/members/me", member.Me)
	rooms.DELETE("/:id/members/me", member.Leave)
	rooms.PUT("/:id/members/me/notify", member.SetNotify)
	rooms.GET("/:id/admin", member.Admin)
	rooms.PUT("/:id/admin", member.DelegateAdmin)
	rooms.POST("/:id/bans", member.Ban)

	send := []gin.HandlerFunc{message.SendMessage}
	if sendLimit != nil {
		send = append([]gin.HandlerFunc{sendLimit}, send...)
	}
	rooms.POST("/:id/messages", send...)
	rooms.GET("/:id/messages", message.GetMessages)
	rooms.GET("/:id/messages/recent", message.Recent)
	rooms.PUT("/:id/read", message.MarkAsRead)
	rooms.GET("/:id/unread", message.GetUnreadCount)
}
