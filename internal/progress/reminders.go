package progress

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"vibe-tracker/tracker-backend/internal/curriculum"
)

// DisplayedReminders caps the reminder list shown under a step.
const DisplayedReminders = 6

// ErrReminderTimeMissing rejects a reminder draft with no target time.
var ErrReminderTimeMissing = errors.New("reminder time is required")

// ReminderDraft is the user's reminder input before validation.
type ReminderDraft struct {
	RemindAt time.Time
	Message  string
}

// ReminderRequest is the body sent to create a reminder.
type ReminderRequest struct {
	RemindAt time.Time `json:"remind_at"`
	Message  string    `json:"message"`
}

// Resolve validates the draft for step and fills the default message.
func (d ReminderDraft) Resolve(step curriculum.StepTemplate) (ReminderRequest, error) {
	if d.RemindAt.IsZero() {
		return ReminderRequest{}, ErrReminderTimeMissing
	}
	msg := d.Message
	if strings.TrimSpace(msg) == "" {
		msg = DefaultReminderMessage(step)
	}
	return ReminderRequest{RemindAt: d.RemindAt.UTC(), Message: msg}, nil
}

// DefaultReminderMessage is used when the user leaves the message blank.
func DefaultReminderMessage(step curriculum.StepTemplate) string {
	return fmt.Sprintf("Step %d: %s", step.Number, step.Title)
}

// UpcomingReminders returns up to limit reminders sorted by remind_at. The
// input slice is left untouched.
func UpcomingReminders(list []Reminder, limit int) []Reminder {
	out := append([]Reminder(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RemindAt.Before(out[j].RemindAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
