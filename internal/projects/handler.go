package projects

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/auth"
	"vibe-tracker/tracker-backend/internal/progress"
)

// Handler handles HTTP requests for projects and step progress
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new projects handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers project routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.GET("", h.listProjects)
		projects.POST("", h.createProject)
		projects.GET("/:id", h.getProject)
		projects.PUT("/:id", h.updateProject)
		projects.DELETE("/:id", h.deleteProject)
		projects.GET("/:id/steps", h.listSteps)
		projects.PUT("/:id/steps/:step_number", h.updateStep)
	}
}

// listProjects handles GET /api/projects
func (h *Handler) listProjects(c *gin.Context) {
	list, err := h.service.ListProjects(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err, "Failed to list projects")
		return
	}
	out := make([]progress.Project, 0, len(list))
	for _, p := range list {
		out = append(out, p.View())
	}
	c.JSON(http.StatusOK, out)
}

// createProject handles POST /api/projects
func (h *Handler) createProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), auth.UserID(c), &req)
	if err != nil {
		h.fail(c, err, "Failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project.View())
}

// getProject handles GET /api/projects/:id
func (h *Handler) getProject(c *gin.Context) {
	snap, err := h.service.GetProject(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to get project", zap.String("project_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// updateProject handles PUT /api/projects/:id
func (h *Handler) updateProject(c *gin.Context) {
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.UpdateProject(c.Request.Context(), auth.UserID(c), c.Param("id"), &req)
	if err != nil {
		h.fail(c, err, "Failed to update project", zap.String("project_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, project.View())
}

// deleteProject handles DELETE /api/projects/:id
func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.service.DeleteProject(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete project", zap.String("project_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// listSteps handles GET /api/projects/:id/steps
func (h *Handler) listSteps(c *gin.Context) {
	records, err := h.service.ListSteps(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to list steps", zap.String("project_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, records)
}

// updateStep handles PUT /api/projects/:id/steps/:step_number
func (h *Handler) updateStep(c *gin.Context) {
	stepNumber, err := strconv.Atoi(c.Param("step_number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step number"})
		return
	}

	var patch progress.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.UpdateStep(c.Request.Context(), auth.UserID(c), c.Param("id"), stepNumber, patch)
	if err != nil {
		h.fail(c, err, "Failed to update step",
			zap.String("project_id", c.Param("id")),
			zap.Int("step_number", stepNumber))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// fail maps service errors onto responses.
func (h *Handler) fail(c *gin.Context, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, ErrStepNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Step not found"})
	default:
		h.logger.Error(msg, append(fields, zap.String("user_id", auth.UserID(c)), zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
