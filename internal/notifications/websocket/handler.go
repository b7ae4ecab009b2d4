package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/auth"
)

// Handler upgrades authenticated requests to event streams.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes registers the websocket route. The group must carry the auth
// middleware with query tokens enabled.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.connect)
}

// connect handles GET /api/ws
func (h *Handler) connect(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
		return
	}

	connID, err := h.manager.HandleConnection(c.Writer, c.Request, userID)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Warn("Failed to open websocket", zap.String("user_id", userID), zap.Error(err))
		return
	}
	h.logger.Debug("Websocket opened", zap.String("user_id", userID), zap.String("connection_id", connID))
}
