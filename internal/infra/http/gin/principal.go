package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

// requireUser reads the caller identity from the X-User-ID header. The
// gateway in front of this service authenticates and sets it.
func requireUser(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
		return "", false
	}
	return id, true
}
