package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chaf-events/backend/internal/auth"
	"github.com/chaf-events/backend/pkg/response"
)

const (
	// ContextUserID is the key for the operator's user ID in gin context.
	ContextUserID = "user_id"
	// ContextUsername is the key for the operator's username in gin context.
	ContextUsername = "username"
	// ContextUserRole is the key for the operator's role in gin context.
	ContextUserRole = "user_role"
)

// JWT returns a middleware that validates JWT and sets operator claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// OperatorName returns the authenticated operator's username from context.
func OperatorName(c *gin.Context) string {
	v, _ := c.Get(ContextUsername)
	name, _ := v.(string)
	return name
}
