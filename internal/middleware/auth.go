package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminRequired guards admin routes with a shared token. An empty token
// rejects every request.
func AdminRequired(token string) gin.HandlerFunc {
	if token == "" {
		log.Println("[admin] ADMIN_TOKEN not set, admin routes are disabled")
	}
	return func(c *gin.Context) {
		supplied := c.GetHeader(AdminTokenHeader)
		if supplied == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}
