package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/progress"
)

// Publisher pushes realtime events to a user's open connections.
type Publisher interface {
	SendToUser(userID string, event websocket.Event) error
}

// Service provides business logic for projects and step progress
type Service struct {
	repo      Repository
	catalog   *curriculum.Catalog
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new projects service. publisher may be nil.
func NewService(repo Repository, catalog *curriculum.Catalog, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Catalog is the step catalog projects are seeded from.
func (s *Service) Catalog() *curriculum.Catalog {
	return s.catalog
}

// ListProjects returns the user's projects, most recently updated first.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return s.repo.ListProjects(ctx, userID)
}

// ListIdleProjects returns unfinished projects of every user last updated at
// or before cutoff.
func (s *Service) ListIdleProjects(ctx context.Context, cutoff time.Time) ([]Project, error) {
	return s.repo.ListIdleProjects(ctx, cutoff)
}

// CreateProject creates a project and seeds a default record for every step.
func (s *Service) CreateProject(ctx context.Context, userID string, req *CreateProjectRequest) (*Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	project := &Project{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	steps := s.catalog.Steps()
	seed := make([]progress.StepProgress, 0, len(steps))
	for _, step := range steps {
		seed = append(seed, progress.Default(step.Number))
	}

	if err := s.repo.CreateProject(ctx, project, seed); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID),
		zap.String("user_id", userID))

	return project, nil
}

// GetProject returns the project view: the project, the catalog and the
// stored progress.
func (s *Service) GetProject(ctx context.Context, userID, id string) (*progress.Snapshot, error) {
	project, err := s.repo.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListStepProgress(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step progress: %w", err)
	}
	return &progress.Snapshot{
		Project:  project.View(),
		Steps:    s.catalog.Steps(),
		Progress: records,
	}, nil
}

// Owned returns the project if it belongs to userID.
func (s *Service) Owned(ctx context.Context, userID, id string) (*Project, error) {
	return s.repo.GetProject(ctx, userID, id)
}

// UpdateProject changes the name and/or description.
func (s *Service) UpdateProject(ctx context.Context, userID, id string, req *UpdateProjectRequest) (*Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return project, nil
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	project.UpdatedAt = s.now()

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.publish(userID, websocket.NewEvent(websocket.EventProjectUpdated, project.ID, project.View()))
	return project, nil
}

// DeleteProject removes the project and its step progress.
func (s *Service) DeleteProject(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteProject(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.logger.Info("Project deleted", zap.String("project_id", id), zap.String("user_id", userID))
	return nil
}

// ListSteps returns the stored progress ordered by step number.
func (s *Service) ListSteps(ctx context.Context, userID, id string) ([]progress.StepProgress, error) {
	project, err := s.repo.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListStepProgress(ctx, project.ID)
}

// UpdateStep normalizes and stores a step patch, then recomputes the
// project's overall progress.
func (s *Service) UpdateStep(ctx context.Context, userID, id string, stepNumber int, patch progress.Patch) (*progress.StepProgress, error) {
	if err := validateStepPatch(patch); err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Step(stepNumber); !ok {
		return nil, ErrStepNotFound
	}

	now := s.now()
	patch = progress.Normalize(patch, now)

	rec, err := s.repo.UpsertStepProgress(ctx, project.ID, stepNumber, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}

	records, err := s.repo.ListStepProgress(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step progress: %w", err)
	}
	percents := make([]int, 0, len(records))
	for _, r := range records {
		percents = append(percents, r.ProgressPercent)
	}
	overall := progress.MeanPercent(percents)
	if err := s.repo.SetOverallProgress(ctx, project.ID, overall, now); err != nil {
		return nil, fmt.Errorf("failed to update overall progress: %w", err)
	}

	s.logger.Debug("Step updated",
		zap.String("project_id", project.ID),
		zap.Int("step_number", stepNumber),
		zap.Int("overall_progress", overall))

	s.publish(userID, websocket.NewEvent(websocket.EventStepUpdated, project.ID, map[string]interface{}{
		"progress":         rec,
		"overall_progress": overall,
	}).ForStep(stepNumber))

	return rec, nil
}

// AttachReminder embeds a created reminder in the step's record.
func (s *Service) AttachReminder(ctx context.Context, projectID string, stepNumber int, reminder progress.Reminder) error {
	return s.repo.AppendReminder(ctx, projectID, stepNumber, reminder)
}

// MarkReminderSent flips the embedded copy of a reminder.
func (s *Service) MarkReminderSent(ctx context.Context, projectID string, stepNumber int, reminderID string) error {
	return s.repo.SetReminderSent(ctx, projectID, stepNumber, reminderID)
}

func (s *Service) publish(userID string, event websocket.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.SendToUser(userID, event); err != nil && !errors.Is(err, websocket.ErrUserNotConnected) {
		s.logger.Warn("Failed to publish event",
			zap.String("user_id", userID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
