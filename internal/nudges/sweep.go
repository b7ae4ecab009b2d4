package nudges

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/progress"
	"vibe-tracker/tracker-backend/internal/projects"
)

// IdleLister finds projects across all users that have not moved since cutoff.
type IdleLister interface {
	ListIdleProjects(ctx context.Context, cutoff time.Time) ([]projects.Project, error)
}

// Sweeper publishes project_stale to the owners of stale projects.
type Sweeper struct {
	projects  IdleLister
	publisher projects.Publisher
	logger    *zap.Logger
}

func NewSweeper(lister IdleLister, publisher projects.Publisher, logger *zap.Logger) *Sweeper {
	return &Sweeper{projects: lister, publisher: publisher, logger: logger}
}

// Sweep returns the number of stale projects found at now. Nothing is
// persisted.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-progress.StaleAfterDays * 24 * time.Hour)
	idle, err := s.projects.ListIdleProjects(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list idle projects: %w", err)
	}

	count := 0
	for _, p := range idle {
		view := p.View()
		if !progress.IsStale(view, now) {
			continue
		}
		count++
		if s.publisher == nil {
			continue
		}
		event := websocket.NewEvent(websocket.EventProjectStale, p.ID, map[string]interface{}{
			"name":             p.Name,
			"days_idle":        progress.DaysIdle(p.UpdatedAt, now),
			"overall_progress": p.OverallProgress,
		})
		if err := s.publisher.SendToUser(p.UserID, event); err != nil {
			s.logger.Debug("Stale nudge not delivered",
				zap.String("project_id", p.ID),
				zap.String("user_id", p.UserID),
				zap.Error(err))
		}
	}

	s.logger.Info("Stale sweep finished",
		zap.Int("idle", len(idle)),
		zap.Int("stale", count))
	return count, nil
}
