package projects

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibe-tracker/tracker-backend/internal/progress"
)

// MemoryRepository keeps everything in process. It backs the "memory"
// database driver used for local runs and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]Project
	steps    map[string]map[int]progress.StepProgress
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects: make(map[string]Project),
		steps:    make(map[string]map[int]progress.StepProgress),
	}
}

func (r *MemoryRepository) collect(keep func(Project) bool) []Project {
	out := make([]Project, 0)
	for _, p := range r.projects {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (r *MemoryRepository) ListProjects(_ context.Context, userID string) ([]Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(p Project) bool { return p.UserID == userID }), nil
}

func (r *MemoryRepository) ListIdleProjects(_ context.Context, updatedBefore time.Time) ([]Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(p Project) bool {
		return !p.UpdatedAt.After(updatedBefore) && p.OverallProgress < 100
	}), nil
}

func (r *MemoryRepository) CreateProject(_ context.Context, project *Project, seed []progress.StepProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project.ID = uuid.New().String()
	r.projects[project.ID] = *project
	steps := make(map[int]progress.StepProgress, len(seed))
	for _, rec := range seed {
		steps[rec.StepNumber] = normalizeRecord(rec)
	}
	r.steps[project.ID] = steps
	return nil
}

func (r *MemoryRepository) GetProject(_ context.Context, userID, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) UpdateProject(_ context.Context, project *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[project.ID]
	if !ok || p.UserID != project.UserID {
		return ErrNotFound
	}
	p.Name = project.Name
	p.Description = project.Description
	p.UpdatedAt = project.UpdatedAt
	r.projects[p.ID] = p
	return nil
}

func (r *MemoryRepository) DeleteProject(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(r.projects, id)
	delete(r.steps, id)
	return nil
}

func (r *MemoryRepository) ListStepProgress(_ context.Context, projectID string) ([]progress.StepProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]progress.StepProgress, 0, len(r.steps[projectID]))
	for _, rec := range r.steps[projectID] {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepNumber < out[j].StepNumber })
	return out, nil
}

func (r *MemoryRepository) mutate(projectID string, stepNumber int, fn func(progress.StepProgress) progress.StepProgress) (progress.StepProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return progress.StepProgress{}, ErrNotFound
	}
	steps := r.steps[projectID]
	if steps == nil {
		steps = make(map[int]progress.StepProgress)
		r.steps[projectID] = steps
	}
	rec, ok := steps[stepNumber]
	if !ok {
		rec = progress.Default(stepNumber)
	}
	rec = normalizeRecord(fn(copyRecord(rec)))
	steps[stepNumber] = rec
	return copyRecord(rec), nil
}

func (r *MemoryRepository) UpsertStepProgress(_ context.Context, projectID string, stepNumber int, patch progress.Patch) (*progress.StepProgress, error) {
	rec, err := r.mutate(projectID, stepNumber, func(existing progress.StepProgress) progress.StepProgress {
		return progress.Apply(existing, patch)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *MemoryRepository) SetOverallProgress(_ context.Context, projectID string, overall int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return ErrNotFound
	}
	p.OverallProgress = overall
	p.UpdatedAt = updatedAt
	r.projects[projectID] = p
	return nil
}

func (r *MemoryRepository) AppendReminder(_ context.Context, projectID string, stepNumber int, reminder progress.Reminder) error {
	_, err := r.mutate(projectID, stepNumber, func(rec progress.StepProgress) progress.StepProgress {
		rec.Reminders = append(rec.Reminders, reminder)
		return rec
	})
	return err
}

func (r *MemoryRepository) SetReminderSent(_ context.Context, projectID string, stepNumber int, reminderID string) error {
	_, err := r.mutate(projectID, stepNumber, func(rec progress.StepProgress) progress.StepProgress {
		for i := range rec.Reminders {
			if rec.Reminders[i].ID == reminderID {
				rec.Reminders[i].Sent = true
			}
		}
		return rec
	})
	return err
}

// Touch backdates a project. Used to simulate idle time.
func (r *MemoryRepository) Touch(projectID string, updatedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[projectID]; ok {
		p.UpdatedAt = updatedAt
		r.projects[projectID] = p
	}
}

func copyRecord(rec progress.StepProgress) progress.StepProgress {
	out := rec
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		out.CompletedAt = &t
	}
	out.Reminders = append([]progress.Reminder{}, rec.Reminders...)
	return out
}
