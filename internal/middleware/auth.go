package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/response"
	"github.com/go-demo/chatcore/internal/pkg/utils"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	TokenQueryParam     = "token"
	UserIDKey           = "user_id"
	UserNameKey         = "user_name"
	ClaimsKey           = "claims"
)

// Auth creates a JWT authentication middleware. Browsers cannot set headers on
// a websocket upgrade, so the token may also arrive as the "token" query param.
func Auth(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			response.Unauthorized(c, "缺少認證 Token")
			c.Abort()
			return
		}
		if token == "" {
			response.Unauthorized(c, "無效的認證格式")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				response.Unauthorized(c, "Token 已過期")
			} else {
				response.Unauthorized(c, "無效的 Token")
			}
			c.Abort()
			return
		}

		// ValidateToken already rejected non-numeric subjects
		userID, _ := claims.UserID()
		c.Set(UserIDKey, userID)
		c.Set(UserNameKey, claims.Name)
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader(AuthorizationHeader); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", true
		}
		return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix)), true
	}
	if token := c.Query(TokenQueryParam); token != "" {
		return token, true
	}
	return "", false
}

// GetUserID retrieves user ID from context
func GetUserID(c *gin.Context) int64 {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0
	}
	return userID.(int64)
}

// GetUserName retrieves the display name carried by the token
func GetUserName(c *gin.Context) string {
	return c.GetString(UserNameKey)
}

// GetClaims retrieves JWT claims from context
func GetClaims(c *gin.Context) *utils.Claims {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}
	return claims.(*utils.Claims)
}
