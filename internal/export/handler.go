package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/auth"
	"vibe-tracker/tracker-backend/internal/config"
	"vibe-tracker/tracker-backend/internal/progress"
	"vibe-tracker/tracker-backend/internal/projects"
	"vibe-tracker/tracker-backend/pkg/storage"
)

// SnapshotSource loads the project view for its owner.
type SnapshotSource interface {
	GetProject(ctx context.Context, userID, id string) (*progress.Snapshot, error)
}

// ArchiveResponse is returned when the export is stored instead of streamed.
type ArchiveResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler handles project export requests
type Handler struct {
	projects   SnapshotSource
	archive    storage.S3Client
	prefix     string
	presignTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler creates an export handler. archive may be nil, in which case
// archive=true is rejected.
func NewHandler(source SnapshotSource, archive storage.S3Client, cfg config.StorageConfig, logger *zap.Logger) *Handler {
	ttl := cfg.PresignTTL.Std()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Handler{
		projects:   source,
		archive:    archive,
		prefix:     cfg.Prefix,
		presignTTL: ttl,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers export routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/export", h.export)
}

// export handles GET /api/projects/:id/export?format=csv|xlsx|pdf&archive=true
func (h *Handler) export(c *gin.Context) {
	format, err := ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	archive := false
	if raw := c.Query("archive"); raw != "" {
		if archive, err = strconv.ParseBool(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "archive must be a boolean"})
			return
		}
	}
	if archive && h.archive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "export archive storage is not configured"})
		return
	}

	userID := auth.UserID(c)
	projectID := c.Param("id")
	snap, err := h.projects.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		h.logger.Error("Failed to load project for export",
			zap.String("project_id", projectID),
			zap.String("user_id", userID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := Render(&buf, format, Build(snap, now)); err != nil {
		h.logger.Error("Failed to render export",
			zap.String("project_id", projectID),
			zap.String("format", string(format)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if !archive {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, FileName(snap.Project.Name, format)))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
		return
	}

	key := fmt.Sprintf("%s%s/%s/%s%s", h.prefix, userID, projectID, now.Format("20060102T150405Z"), format.Extension())
	if err := h.archive.Upload(c.Request.Context(), key, format.ContentType(), &buf); err != nil {
		h.logger.Error("Failed to archive export", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store export"})
		return
	}
	url, err := h.archive.GetPresignedURL(c.Request.Context(), key, h.presignTTL)
	if err != nil {
		h.logger.Error("Failed to presign export", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store export"})
		return
	}

	h.logger.Info("Export archived",
		zap.String("project_id", projectID),
		zap.String("key", key))
	c.JSON(http.StatusOK, ArchiveResponse{Key: key, URL: url, ExpiresAt: now.Add(h.presignTTL)})
}

// FileName turns a project name into a download file name.
func FileName(projectName string, f Format) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(projectName) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "project"
	}
	return slug + "-progress" + f.Extension()
}
