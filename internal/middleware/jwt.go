package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healrag/healrag/internal/pkg/errcode"
	"github.com/healrag/healrag/internal/pkg/jwt"
	"github.com/healrag/healrag/internal/pkg/response"
)

const ContextClientIDKey = "client_id"

// JWTAuth guards the API when a secret is configured; an empty secret
// leaves the API open, which suits single-tenant deployments.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextClientIDKey, claims.ClientID)
		c.Next()
	}
}
