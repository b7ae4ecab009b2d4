package reminders

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"vibe-tracker/tracker-backend/internal/progress"
)

var (
	ErrNotFound     = errors.New("reminder not found")
	ErrInvalidInput = errors.New("invalid input")
)

const MaxMessageLength = 300

// Reminder is the stored reminder. A copy without the ownership fields is
// embedded in the step's progress record.
type Reminder struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	ProjectID  string    `json:"project_id"`
	StepNumber int       `json:"step_number"`
	RemindAt   time.Time `json:"remind_at"`
	Message    string    `json:"message"`
	Sent       bool      `json:"sent"`
	CreatedAt  time.Time `json:"created_at"`
}

// Embedded is the copy kept on the step record.
func (r Reminder) Embedded() progress.Reminder {
	return progress.Reminder{ID: r.ID, RemindAt: r.RemindAt, Message: r.Message, Sent: r.Sent}
}

// CreateReminderRequest is the body of POST /api/reminders
type CreateReminderRequest struct {
	RemindAt *time.Time `json:"remind_at"`
	Message  string     `json:"message"`
}

func (r CreateReminderRequest) Validate() error {
	if r.RemindAt == nil || r.RemindAt.IsZero() {
		return fmt.Errorf("%w: remind_at is required", ErrInvalidInput)
	}
	n := utf8.RuneCountInString(r.Message)
	if n < 1 || n > MaxMessageLength {
		return fmt.Errorf("%w: message must be 1-%d characters", ErrInvalidInput, MaxMessageLength)
	}
	return nil
}

// ListFilter narrows GET /api/reminders
type ListFilter struct {
	PendingOnly bool
}
