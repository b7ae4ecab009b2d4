package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderRow is the reminders table.
type ReminderRow struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid"`
	UserID     string    `gorm:"not null;index:idx_reminders_user_sent_at,priority:1"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index:idx_reminders_project_step,priority:1"`
	StepNumber int       `gorm:"not null;index:idx_reminders_project_step,priority:2"`
	RemindAt   time.Time `gorm:"not null;index:idx_reminders_user_sent_at,priority:3"`
	Message    string    `gorm:"size:300;not null"`
	Sent       bool      `gorm:"not null;default:false;index:idx_reminders_user_sent_at,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
}

func (ReminderRow) TableName() string { return "reminders" }

func (r ReminderRow) reminder() Reminder {
	return Reminder{
		ID:         r.ID.String(),
		UserID:     r.UserID,
		ProjectID:  r.ProjectID.String(),
		StepNumber: r.StepNumber,
		RemindAt:   r.RemindAt,
		Message:    r.Message,
		Sent:       r.Sent,
		CreatedAt:  r.CreatedAt,
	}
}

var _ Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Migrate() error {
	return r.db.AutoMigrate(&ReminderRow{})
}

func (r *PostgresRepository) Create(ctx context.Context, reminder *Reminder) error {
	projectID, err := uuid.Parse(reminder.ProjectID)
	if err != nil {
		return fmt.Errorf("%w: bad project id", ErrInvalidInput)
	}
	row := ReminderRow{
		ID:         uuid.New(),
		UserID:     reminder.UserID,
		ProjectID:  projectID,
		StepNumber: reminder.StepNumber,
		RemindAt:   reminder.RemindAt,
		Message:    reminder.Message,
		CreatedAt:  reminder.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	reminder.ID = row.ID.String()
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, filter ListFilter) ([]Reminder, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.PendingOnly {
		q = q.Where("sent = ?", false)
	}
	var rows []ReminderRow
	if err := q.Order("remind_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	out := make([]Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.reminder())
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*Reminder, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var row ReminderRow
	err = r.db.WithContext(ctx).Where("id = ? AND user_id = ?", rid, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	rem := row.reminder()
	return &rem, nil
}

func (r *PostgresRepository) MarkSent(ctx context.Context, id string) error {
	rid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&ReminderRow{}).Where("id = ?", rid).Update("sent", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
