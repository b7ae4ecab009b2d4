package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/api/router"
	"vibe-tracker/tracker-backend/internal/auth"
	"vibe-tracker/tracker-backend/internal/config"
	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/database"
	"vibe-tracker/tracker-backend/internal/export"
	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/nudges"
	"vibe-tracker/tracker-backend/internal/projects"
	"vibe-tracker/tracker-backend/internal/reminders"
	"vibe-tracker/tracker-backend/pkg/logger"
	"vibe-tracker/tracker-backend/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server failed", zap.Error(err))
	}
	zl.Info("Server exiting")
}

// stores are the repositories of the selected driver.
type stores struct {
	projects  projects.Repository
	reminders reminders.Repository
	users     auth.UserRepository
	close     func(context.Context)
}

func openStores(ctx context.Context, cfg config.DatabaseConfig, zl *zap.Logger) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg, zl)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			projects:  projects.NewMongoRepository(db),
			reminders: reminders.NewMongoRepository(db),
			users:     auth.NewMongoUserRepository(db),
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					zl.Warn("Failed to disconnect from MongoDB", zap.Error(err))
				}
			},
		}, nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg, zl)
		if err != nil {
			return nil, err
		}
		users := auth.NewPostgresUserRepository(db)
		projectRepo := projects.NewPostgresRepository(db)
		reminderRepo := reminders.NewPostgresRepository(db)
		if err := database.Migrate(users, projectRepo, reminderRepo); err != nil {
			return nil, err
		}
		return &stores{
			projects:  projectRepo,
			reminders: reminderRepo,
			users:     users,
			close: func(context.Context) {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			},
		}, nil

	case config.DriverMemory:
		zl.Warn("Using the in-memory store, data is lost on restart")
		return &stores{
			projects:  projects.NewMemoryRepository(),
			reminders: reminders.NewMemoryRepository(),
			users:     auth.NewMemoryUserRepository(),
			close:     func(context.Context) {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newVerifier(cfg config.AuthConfig, zl *zap.Logger) (auth.Verifier, func(), error) {
	switch cfg.Mode {
	case config.AuthModeFirebase:
		v := auth.NewFirebaseVerifier(cfg.FirebaseProjectID, zl)
		return v, v.Close, nil
	case config.AuthModeDev:
		zl.Warn("Accepting development tokens, do not use in production")
		return auth.NewDevVerifier(cfg.DevSecret), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := curriculum.Load(cfg.Curriculum.StepsPath)
	if err != nil {
		return fmt.Errorf("failed to load curriculum: %w", err)
	}
	zl.Info("Curriculum loaded", zap.Int("steps", catalog.Len()))

	st, err := openStores(ctx, cfg.Database, zl)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	verifier, closeVerifier, err := newVerifier(cfg.Auth, zl)
	if err != nil {
		return err
	}
	defer closeVerifier()

	touch := auth.NewUserTouch(st.users, cfg.Auth.UserTouchTTL.Std(), zl)
	defer touch.Close()

	events := websocket.NewManager(zl, cfg.Server.CORSOrigins)
	defer events.Close()

	projectService := projects.NewService(st.projects, catalog, events, zl)
	reminderService := reminders.NewService(st.reminders, projectService, events, zl)

	var archive storage.S3Client
	if cfg.Storage.Enabled() {
		if archive, err = storage.NewS3Client(ctx, cfg.Storage); err != nil {
			return err
		}
		zl.Info("Export archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	if cfg.Nudges.Enabled {
		scheduler := nudges.NewScheduler(nudges.NewSweeper(projectService, events, zl), cfg.Nudges.Schedule, zl)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.Setup(cfg, verifier, touch, router.Handlers{
		Steps:     curriculum.NewHandler(catalog),
		Projects:  projects.NewHandler(projectService, zl),
		Reminders: reminders.NewHandler(reminderService, zl),
		Export:    export.NewHandler(projectService, archive, cfg.Storage, zl),
		Events:    websocket.NewHandler(events, zl),
	}, zl)

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
