package reminders

import "context"

// Repository stores reminders. Lists are ordered by remind_at ascending.
type Repository interface {
	Create(ctx context.Context, reminder *Reminder) error
	List(ctx context.Context, userID string, filter ListFilter) ([]Reminder, error)
	Get(ctx context.Context, userID, id string) (*Reminder, error)
	MarkSent(ctx context.Context, id string) error
}
