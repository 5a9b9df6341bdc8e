// README: Session middleware: validates the bearer token and stores the
// caller's session on the gin context.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/session"
)

const sessionKey = "session"

// Auth validates the Authorization header and injects the session.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := session.ParseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

// RequireRole rejects callers whose session role is not in the allow list.
func RequireRole(roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := Session(c)
		if s == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}
		for _, r := range roles {
			if s.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// Session returns the caller's session, or nil outside the Auth middleware.
func Session(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
