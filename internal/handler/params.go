package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/response"
)

// roomIDParam parses the :id path segment, writing a 400 when it is not a positive integer.
func roomIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "無效的聊天室 ID")
		return 0, false
	}
	return id, true
}
