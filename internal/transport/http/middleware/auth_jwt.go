package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/core/auth"
	resp "tasktracker/internal/transport/http/response"
)

// 上下文 key
const (
	KeyUserID   = "userId"
	KeyUsername = "username"
	KeyRole     = "role"
	KeyClaims   = "claims"
)

// AuthJWT 校验 Bearer token；requireRole 为空时只要求登录
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if requireRole != "" && !strings.EqualFold(claims.Role, requireRole) {
			resp.Abort(c, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyUsername, claims.Username())
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}
