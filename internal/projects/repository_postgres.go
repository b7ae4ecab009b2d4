package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibe-tracker/tracker-backend/internal/progress"
)

// ProjectRow is the projects table.
type ProjectRow struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid"`
	UserID          string    `gorm:"not null;index:idx_projects_user_updated,priority:1"`
	Name            string    `gorm:"size:80;not null"`
	Description     string    `gorm:"size:600;not null;default:''"`
	OverallProgress int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false;index:idx_projects_user_updated,priority:2"`
}

func (ProjectRow) TableName() string { return "projects" }

func (r ProjectRow) project() Project {
	return Project{
		ID:              r.ID.String(),
		UserID:          r.UserID,
		Name:            r.Name,
		Description:     r.Description,
		OverallProgress: r.OverallProgress,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// StepProgressRow is the step_progress table. Reminders are embedded as jsonb
// so the project view needs no join.
type StepProgressRow struct {
	ProjectID       uuid.UUID  `gorm:"primaryKey;type:uuid"`
	StepNumber      int        `gorm:"primaryKey"`
	Status          string     `gorm:"size:16;not null"`
	ProgressPercent int        `gorm:"not null;default:0"`
	Notes           string     `gorm:"type:text;not null;default:''"`
	CompletedAt     *time.Time
	Reminders       datatypes.JSONType[[]progress.Reminder]
}

func (StepProgressRow) TableName() string { return "step_progress" }

func (r StepProgressRow) record() progress.StepProgress {
	return normalizeRecord(progress.StepProgress{
		StepNumber:      r.StepNumber,
		Status:          progress.Status(r.Status),
		ProgressPercent: r.ProgressPercent,
		Notes:           r.Notes,
		CompletedAt:     r.CompletedAt,
		Reminders:       r.Reminders.Data(),
	})
}

func newStepRow(projectID uuid.UUID, rec progress.StepProgress) StepProgressRow {
	rec = normalizeRecord(rec)
	return StepProgressRow{
		ProjectID:       projectID,
		StepNumber:      rec.StepNumber,
		Status:          string(rec.Status),
		ProgressPercent: rec.ProgressPercent,
		Notes:           rec.Notes,
		CompletedAt:     rec.CompletedAt,
		Reminders:       datatypes.NewJSONType(rec.Reminders),
	}
}

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository implements Repository on gorm.
type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates or updates the tables.
func (r *PostgresRepository) Migrate() error {
	return r.db.AutoMigrate(&ProjectRow{}, &StepProgressRow{})
}

func parseUUID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return u, nil
}

func (r *PostgresRepository) findProjects(ctx context.Context, query string, args ...interface{}) ([]Project, error) {
	var rows []ProjectRow
	if err := r.db.WithContext(ctx).Where(query, args...).Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]Project, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.project())
	}
	return out, nil
}

func (r *PostgresRepository) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return r.findProjects(ctx, "user_id = ?", userID)
}

func (r *PostgresRepository) ListIdleProjects(ctx context.Context, updatedBefore time.Time) ([]Project, error) {
	return r.findProjects(ctx, "updated_at <= ? AND overall_progress < ?", updatedBefore, 100)
}

func (r *PostgresRepository) CreateProject(ctx context.Context, project *Project, seed []progress.StepProgress) error {
	row := ProjectRow{
		ID:              uuid.New(),
		UserID:          project.UserID,
		Name:            project.Name,
		Description:     project.Description,
		OverallProgress: project.OverallProgress,
		CreatedAt:       project.CreatedAt,
		UpdatedAt:       project.UpdatedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(seed) == 0 {
			return nil
		}
		rows := make([]StepProgressRow, 0, len(seed))
		for _, rec := range seed {
			rows = append(rows, newStepRow(row.ID, rec))
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	project.ID = row.ID.String()
	return nil
}

func (r *PostgresRepository) GetProject(ctx context.Context, userID, id string) (*Project, error) {
	pid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	var row ProjectRow
	err = r.db.WithContext(ctx).Where("id = ? AND user_id = ?", pid, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p := row.project()
	return &p, nil
}

func (r *PostgresRepository) UpdateProject(ctx context.Context, project *Project) error {
	pid, err := parseUUID(project.ID)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&ProjectRow{}).
		Where("id = ? AND user_id = ?", pid, project.UserID).
		Updates(map[string]interface{}{
			"name":        project.Name,
			"description": project.Description,
			"updated_at":  project.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteProject(ctx context.Context, userID, id string) error {
	pid, err := parseUUID(id)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", pid, userID).Delete(&ProjectRow{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("project_id = ?", pid).Delete(&StepProgressRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete step progress: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) ListStepProgress(ctx context.Context, projectID string) ([]progress.StepProgress, error) {
	pid, err := parseUUID(projectID)
	if err != nil {
		return nil, err
	}
	var rows []StepProgressRow
	if err := r.db.WithContext(ctx).Where("project_id = ?", pid).Order("step_number ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list step progress: %w", err)
	}
	out := make([]progress.StepProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// mutateStep loads the record (or its default) under a row lock, applies fn
// and writes it back.
func (r *PostgresRepository) mutateStep(ctx context.Context, projectID string, stepNumber int, fn func(progress.StepProgress) progress.StepProgress) (*progress.StepProgress, error) {
	pid, err := parseUUID(projectID)
	if err != nil {
		return nil, err
	}

	var out progress.StepProgress
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row StepProgressRow
		rec := progress.Default(stepNumber)
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ? AND step_number = ?", pid, stepNumber).
			First(&row).Error
		switch {
		case err == nil:
			rec = row.record()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		out = fn(rec)
		updated := newStepRow(pid, out)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "step_number"}},
			UpdateAll: true,
		}).Create(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostgresRepository) UpsertStepProgress(ctx context.Context, projectID string, stepNumber int, patch progress.Patch) (*progress.StepProgress, error) {
	rec, err := r.mutateStep(ctx, projectID, stepNumber, func(existing progress.StepProgress) progress.StepProgress {
		return progress.Apply(existing, patch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert step progress: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) SetOverallProgress(ctx context.Context, projectID string, overall int, updatedAt time.Time) error {
	pid, err := parseUUID(projectID)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Model(&ProjectRow{}).Where("id = ?", pid).
		Updates(map[string]interface{}{"overall_progress": overall, "updated_at": updatedAt}).Error
	if err != nil {
		return fmt.Errorf("failed to update overall progress: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendReminder(ctx context.Context, projectID string, stepNumber int, reminder progress.Reminder) error {
	_, err := r.mutateStep(ctx, projectID, stepNumber, func(rec progress.StepProgress) progress.StepProgress {
		rec.Reminders = append(rec.Reminders, reminder)
		return rec
	})
	if err != nil {
		return fmt.Errorf("failed to attach reminder: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetReminderSent(ctx context.Context, projectID string, stepNumber int, reminderID string) error {
	_, err := r.mutateStep(ctx, projectID, stepNumber, func(rec progress.StepProgress) progress.StepProgress {
		for i := range rec.Reminders {
			if rec.Reminders[i].ID == reminderID {
				rec.Reminders[i].Sent = true
			}
		}
		return rec
	})
	if err != nil {
		return fmt.Errorf("failed to mark embedded reminder sent: %w", err)
	}
	return nil
}
