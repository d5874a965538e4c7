package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"unistay/internal/services"
)

const (
	ctxUserID = "user_id"
	ctxRoleID = "role_id"
	ctxEmail  = "email"
)

type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// AuthMiddleware requires a valid bearer token and stores the caller in the
// gin context.
func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header", "code": "unauthorized"})
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "code": "unauthorized"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRoleID, claims.RoleID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

// ActorFrom returns the caller stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (services.Actor, bool) {
	userID := c.GetInt(ctxUserID)
	if userID == 0 {
		return services.Actor{}, false
	}
	return services.Actor{
		UserID: userID,
		RoleID: c.GetInt(ctxRoleID),
		Email:  c.GetString(ctxEmail),
	}, true
}
