package reminders

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps reminders in process.
type MemoryRepository struct {
	mu        sync.RWMutex
	reminders map[string]Reminder
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reminders: make(map[string]Reminder)}
}

func (r *MemoryRepository) Create(_ context.Context, reminder *Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder.ID = uuid.New().String()
	reminder.Sent = false
	r.reminders[reminder.ID] = *reminder
	return nil
}

func (r *MemoryRepository) List(_ context.Context, userID string, filter ListFilter) ([]Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Reminder, 0)
	for _, rem := range r.reminders {
		if rem.UserID != userID || (filter.PendingOnly && rem.Sent) {
			continue
		}
		out = append(out, rem)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, userID, id string) (*Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rem, ok := r.reminders[id]
	if !ok || rem.UserID != userID {
		return nil, ErrNotFound
	}
	return &rem, nil
}

func (r *MemoryRepository) MarkSent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.reminders[id]
	if !ok {
		return ErrNotFound
	}
	rem.Sent = true
	r.reminders[id] = rem
	return nil
}
