// Package progress derives view values from a project snapshot: phase
// rollups, staleness, step patches and the optimistic board that applies
// them against the remote API.
package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"vibe-tracker/tracker-backend/internal/curriculum"
)

// Status is the closed set of step states.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown step status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusSkipped:
		return true
	default:
		return false
	}
}

// Label is the human readable form shown next to a step.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "not started"
	case StatusInProgress:
		return "in progress"
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	default:
		return string(s)
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Reminder is a scheduled nudge tied to a step. Sent is owned by the server.
type Reminder struct {
	ID       string    `json:"id" bson:"id"`
	RemindAt time.Time `json:"remind_at" bson:"remind_at"`
	Message  string    `json:"message" bson:"message"`
	Sent     bool      `json:"sent" bson:"sent"`
}

// StepProgress is the per-project mutable record for one step.
type StepProgress struct {
	StepNumber      int        `json:"step_number"`
	Status          Status     `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	Notes           string     `json:"notes"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Reminders       []Reminder `json:"reminders"`
}

// Project is the dashboard entry. OverallProgress is computed by the server.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OverallProgress int       `json:"overall_progress"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Snapshot is the project detail payload.
type Snapshot struct {
	Project  Project                   `json:"project"`
	Steps    []curriculum.StepTemplate `json:"steps"`
	Progress []StepProgress            `json:"progress"`
}

// Default materializes the record used when a step has no stored progress.
func Default(stepNumber int) StepProgress {
	return StepProgress{
		StepNumber:      stepNumber,
		Status:          StatusNotStarted,
		ProgressPercent: 0,
		Notes:           "",
		Reminders:       []Reminder{},
	}
}

// IndexByStep maps step numbers to their records. Later duplicates win.
func IndexByStep(records []StepProgress) map[int]StepProgress {
	idx := make(map[int]StepProgress, len(records))
	for _, r := range records {
		idx[r.StepNumber] = r
	}
	return idx
}

// Lookup returns the stored record or the materialized default.
func Lookup(idx map[int]StepProgress, stepNumber int) StepProgress {
	if r, ok := idx[stepNumber]; ok {
		return r
	}
	return Default(stepNumber)
}

func (p StepProgress) clone() StepProgress {
	out := p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	out.Reminders = append([]Reminder(nil), p.Reminders...)
	if out.Reminders == nil {
		out.Reminders = []Reminder{}
	}
	return out
}
