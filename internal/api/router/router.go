package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/api/middleware"
	"vibe-tracker/tracker-backend/internal/auth"
	"vibe-tracker/tracker-backend/internal/config"
	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/export"
	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/projects"
	"vibe-tracker/tracker-backend/internal/reminders"
)

const maxBodyBytes = 1 << 20

// Handlers are the route groups mounted under /api. Nil groups are skipped.
type Handlers struct {
	Steps     *curriculum.Handler
	Projects  *projects.Handler
	Reminders *reminders.Handler
	Export    *export.Handler
	Events    *websocket.Handler
}

// Setup builds the gin engine. toucher may be nil.
func Setup(cfg *config.Config, verifier auth.Verifier, toucher auth.Toucher, h Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if h.Steps != nil {
		h.Steps.RegisterRoutes(api)
	}

	var authOpts []auth.MiddlewareOption
	if toucher != nil {
		authOpts = append(authOpts, auth.WithToucher(toucher))
	}

	authorized := api.Group("")
	authorized.Use(auth.Middleware(verifier, authOpts...))
	{
		authorized.GET("/me", auth.Me)
		if h.Projects != nil {
			h.Projects.RegisterRoutes(authorized)
		}
		if h.Reminders != nil {
			h.Reminders.RegisterRoutes(authorized)
		}
		if h.Export != nil {
			h.Export.RegisterRoutes(authorized)
		}
	}

	if h.Events != nil {
		events := api.Group("")
		events.Use(auth.Middleware(verifier, append(authOpts, auth.WithQueryToken())...))
		h.Events.RegisterRoutes(events)
	}

	return r
}
