package reminders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/auth"
	"vibe-tracker/tracker-backend/internal/projects"
)

// Handler handles HTTP requests for reminders
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers reminder routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reminders := router.Group("/reminders")
	{
		reminders.GET("", h.list)
		reminders.POST("", h.create)
		reminders.POST("/:id/sent", h.markSent)
	}
}

// list handles GET /api/reminders
func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{}
	if raw := c.Query("pending"); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pending must be a boolean"})
			return
		}
		filter.PendingOnly = pending
	}

	list, err := h.service.List(c.Request.Context(), auth.UserID(c), filter)
	if err != nil {
		h.fail(c, err, "Failed to list reminders")
		return
	}
	c.JSON(http.StatusOK, list)
}

// create handles POST /api/reminders?project_id=&step_number=
func (h *Handler) create(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}
	stepNumber, err := strconv.Atoi(c.Query("step_number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step_number must be an integer"})
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reminder, err := h.service.Create(c.Request.Context(), auth.UserID(c), projectID, stepNumber, &req)
	if err != nil {
		h.fail(c, err, "Failed to create reminder",
			zap.String("project_id", projectID),
			zap.Int("step_number", stepNumber))
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

// markSent handles POST /api/reminders/:id/sent
func (h *Handler) markSent(c *gin.Context) {
	reminder, err := h.service.MarkSent(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to mark reminder sent", zap.String("reminder_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (h *Handler) fail(c *gin.Context, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, projects.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, projects.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, projects.ErrStepNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Step not found"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
	default:
		h.logger.Error(msg, append(fields, zap.String("user_id", auth.UserID(c)), zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
