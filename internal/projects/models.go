package projects

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"vibe-tracker/tracker-backend/internal/progress"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrStepNotFound = errors.New("step not found")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	MaxNameLength        = 80
	MaxDescriptionLength = 600
	MaxNotesLength       = 8000
)

// Project is a stored project with its owner.
type Project struct {
	ID              string    `json:"id"`
	UserID          string    `json:"-"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OverallProgress int       `json:"overall_progress"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// View strips the owner for API responses.
func (p Project) View() progress.Project {
	return progress.Project{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		OverallProgress: p.OverallProgress,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r CreateProjectRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	return validateDescription(r.Description)
}

// UpdateProjectRequest is the body of PUT /api/projects/:id. Nil fields are
// left alone.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r UpdateProjectRequest) Validate() error {
	if r.Name != nil {
		if err := validateName(*r.Name); err != nil {
			return err
		}
	}
	if r.Description != nil {
		return validateDescription(*r.Description)
	}
	return nil
}

func (r UpdateProjectRequest) Empty() bool {
	return r.Name == nil && r.Description == nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, MaxNameLength)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	return nil
}

func validateStepPatch(p progress.Patch) error {
	if p.Notes != nil && utf8.RuneCountInString(*p.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, MaxNotesLength)
	}
	return nil
}

// normalizeRecord fills the fields older documents may lack.
func normalizeRecord(rec progress.StepProgress) progress.StepProgress {
	if !rec.Status.Valid() {
		rec.Status = progress.StatusNotStarted
	}
	if rec.Reminders == nil {
		rec.Reminders = []progress.Reminder{}
	}
	return rec
}
