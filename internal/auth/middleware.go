package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "auth.user_id"

// Authenticator resolves bearer tokens to user IDs.
type Authenticator interface {
	Authenticate(token string) (int64, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's user ID in the gin context.
func Middleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, "missing authorization")
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, "invalid authorization format")
			return
		}

		userID, err := a.Authenticate(parts[1])
		if err != nil {
			abort(c, "could not validate credentials")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller. It is 0 outside Middleware.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func abort(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "kind": "unauthorized"})
}
