package projects

import (
	"context"
	"time"

	"vibe-tracker/tracker-backend/internal/progress"
)

// Repository stores projects and their per-step progress. Lookups scoped by
// userID return ErrNotFound for malformed ids and for other users' projects.
type Repository interface {
	ListProjects(ctx context.Context, userID string) ([]Project, error)
	ListIdleProjects(ctx context.Context, updatedBefore time.Time) ([]Project, error)
	CreateProject(ctx context.Context, project *Project, seed []progress.StepProgress) error
	GetProject(ctx context.Context, userID, id string) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	DeleteProject(ctx context.Context, userID, id string) error

	ListStepProgress(ctx context.Context, projectID string) ([]progress.StepProgress, error)
	UpsertStepProgress(ctx context.Context, projectID string, stepNumber int, patch progress.Patch) (*progress.StepProgress, error)
	SetOverallProgress(ctx context.Context, projectID string, overall int, updatedAt time.Time) error

	AppendReminder(ctx context.Context, projectID string, stepNumber int, reminder progress.Reminder) error
	SetReminderSent(ctx context.Context, projectID string, stepNumber int, reminderID string) error
}
