package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/progress"
	"vibe-tracker/tracker-backend/internal/projects"
)

// ProjectService is the slice of the projects service reminders depend on.
type ProjectService interface {
	Owned(ctx context.Context, userID, id string) (*projects.Project, error)
	Catalog() *curriculum.Catalog
	AttachReminder(ctx context.Context, projectID string, stepNumber int, reminder progress.Reminder) error
	MarkReminderSent(ctx context.Context, projectID string, stepNumber int, reminderID string) error
}

// Service provides business logic for reminders
type Service struct {
	repo      Repository
	projects  ProjectService
	publisher projects.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, projectService ProjectService, publisher projects.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		projects:  projectService,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a reminder for a step of one of the user's projects and
// embeds a copy in the step record.
func (s *Service) Create(ctx context.Context, userID, projectID string, stepNumber int, req *CreateReminderRequest) (*Reminder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	project, err := s.projects.Owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.projects.Catalog().Step(stepNumber); !ok {
		return nil, projects.ErrStepNotFound
	}

	reminder := &Reminder{
		UserID:     userID,
		ProjectID:  project.ID,
		StepNumber: stepNumber,
		RemindAt:   req.RemindAt.UTC(),
		Message:    req.Message,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	if err := s.projects.AttachReminder(ctx, project.ID, stepNumber, reminder.Embedded()); err != nil {
		return nil, fmt.Errorf("failed to attach reminder: %w", err)
	}

	s.logger.Info("Reminder created",
		zap.String("reminder_id", reminder.ID),
		zap.String("project_id", project.ID),
		zap.Int("step_number", stepNumber),
		zap.Time("remind_at", reminder.RemindAt))

	s.publish(userID, websocket.NewEvent(websocket.EventReminderCreated, project.ID, reminder).ForStep(stepNumber))
	return reminder, nil
}

// List returns the user's reminders by remind_at ascending.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Reminder, error) {
	return s.repo.List(ctx, userID, filter)
}

// MarkSent flips the stored reminder and its embedded copy. Marking an
// already sent reminder is a no-op.
func (s *Service) MarkSent(ctx context.Context, userID, id string) (*Reminder, error) {
	reminder, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if reminder.Sent {
		return reminder, nil
	}
	if err := s.repo.MarkSent(ctx, reminder.ID); err != nil {
		return nil, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if err := s.projects.MarkReminderSent(ctx, reminder.ProjectID, reminder.StepNumber, reminder.ID); err != nil {
		s.logger.Warn("Failed to flip embedded reminder",
			zap.String("reminder_id", reminder.ID),
			zap.String("project_id", reminder.ProjectID),
			zap.Error(err))
	}
	reminder.Sent = true
	return reminder, nil
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
