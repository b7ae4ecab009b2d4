package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me handles GET /api/me
func Me(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
		return
	}
	c.JSON(http.StatusOK, id)
}
