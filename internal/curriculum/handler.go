package curriculum

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the step catalog.
type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes registers the public catalog routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/steps", h.listSteps)
}

// listSteps handles GET /api/steps
func (h *Handler) listSteps(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Steps())
}
