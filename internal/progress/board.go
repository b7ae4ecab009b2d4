package progress

import (
	"context"
	"errors"
	"sync"

	"vibe-tracker/tracker-backend/internal/curriculum"
)

// ErrBoardClosed is returned once a board has been torn down.
var ErrBoardClosed = errors.New("board closed")

// API is the remote boundary the board sends mutations to.
type API interface {
	UpdateStep(ctx context.Context, projectID string, stepNumber int, patch Patch) (StepProgress, error)
	CreateReminder(ctx context.Context, projectID string, stepNumber int, req ReminderRequest) (Reminder, error)
}

// RenderFunc is called with a fresh copy of the snapshot after every local
// state change.
type RenderFunc func(Snapshot)

// Board holds one project snapshot and applies edits optimistically: the
// patched record is visible before the request is sent and replaced by the
// server's record when it returns. Failed requests leave the optimistic value
// in place and set Err.
type Board struct {
	api    API
	render RenderFunc

	mu      sync.Mutex
	snap    Snapshot
	issued  map[int]uint64
	applied map[int]uint64
	lastErr error
	closed  bool
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithRender installs a render hook.
func WithRender(fn RenderFunc) BoardOption {
	return func(b *Board) { b.render = fn }
}

// NewBoard wraps snap. The snapshot is copied.
func NewBoard(api API, snap Snapshot, opts ...BoardOption) *Board {
	b := &Board{
		api:     api,
		snap:    copySnapshot(snap),
		issued:  make(map[int]uint64),
		applied: make(map[int]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copySnapshot(b.snap)
}

// Step returns the current record for stepNumber, materializing the default.
func (b *Board) Step(stepNumber int) StepProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.find(stepNumber); i >= 0 {
		return b.snap.Progress[i].clone()
	}
	return Default(stepNumber)
}

// Phases rolls up the current state.
func (b *Board) Phases() []PhaseSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Rollup(b.snap.Steps, b.snap.Progress)
}

// Err is the last request failure, shown as a banner.
func (b *Board) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

func (b *Board) ClearErr() {
	b.mu.Lock()
	b.lastErr = nil
	b.mu.Unlock()
}

// Close marks the board as torn down. Results arriving later are ignored;
// requests already in flight are not cancelled.
func (b *Board) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// UpdateStep applies patch locally, sends it and reconciles with the
// server's record. A response is discarded if a newer request for the same
// step has already completed, whether it succeeded or failed.
func (b *Board) UpdateStep(ctx context.Context, stepNumber int, patch Patch) (StepProgress, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return StepProgress{}, ErrBoardClosed
	}
	optimistic := Apply(b.current(stepNumber), patch)
	b.replace(optimistic)
	b.issued[stepNumber]++
	seq := b.issued[stepNumber]
	projectID := b.snap.Project.ID
	b.notify()
	b.mu.Unlock()

	updated, err := b.api.UpdateStep(ctx, projectID, stepNumber, patch)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StepProgress{}, ErrBoardClosed
	}
	if err != nil {
		// A failed request still supersedes older ones for this step.
		if seq > b.applied[stepNumber] {
			b.applied[stepNumber] = seq
		}
		b.lastErr = err
		b.notify()
		return optimistic, err
	}
	if seq <= b.applied[stepNumber] {
		return b.current(stepNumber), nil
	}
	b.applied[stepNumber] = seq
	if updated.Reminders == nil {
		updated.Reminders = []Reminder{}
	}
	b.replace(updated)
	b.notify()
	return updated.clone(), nil
}

// CreateReminder validates draft, creates the reminder remotely and appends
// the result to the step's reminder list. A draft without a time is rejected
// before any request is made.
func (b *Board) CreateReminder(ctx context.Context, stepNumber int, draft ReminderDraft) (Reminder, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Reminder{}, ErrBoardClosed
	}
	tmpl := b.template(stepNumber)
	projectID := b.snap.Project.ID
	b.mu.Unlock()

	req, err := draft.Resolve(tmpl)
	if err != nil {
		return Reminder{}, err
	}

	b.mu.Lock()
	b.lastErr = nil
	b.mu.Unlock()

	created, err := b.api.CreateReminder(ctx, projectID, stepNumber, req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Reminder{}, ErrBoardClosed
	}
	if err != nil {
		b.lastErr = err
		b.notify()
		return Reminder{}, err
	}
	rec := b.current(stepNumber)
	rec.Reminders = append(rec.Reminders, created)
	b.replace(rec)
	b.notify()
	return created, nil
}

func (b *Board) find(stepNumber int) int {
	for i, p := range b.snap.Progress {
		if p.StepNumber == stepNumber {
			return i
		}
	}
	return -1
}

func (b *Board) current(stepNumber int) StepProgress {
	if i := b.find(stepNumber); i >= 0 {
		return b.snap.Progress[i].clone()
	}
	return Default(stepNumber)
}

func (b *Board) replace(rec StepProgress) {
	if i := b.find(rec.StepNumber); i >= 0 {
		b.snap.Progress[i] = rec
		return
	}
	b.snap.Progress = append(b.snap.Progress, rec)
}

func (b *Board) template(stepNumber int) curriculum.StepTemplate {
	for _, s := range b.snap.Steps {
		if s.Number == stepNumber {
			return s
		}
	}
	return curriculum.StepTemplate{Number: stepNumber}
}

func (b *Board) notify() {
	if b.render != nil {
		b.render(copySnapshot(b.snap))
	}
}

func copySnapshot(s Snapshot) Snapshot {
	out := s
	out.Steps = append([]curriculum.StepTemplate(nil), s.Steps...)
	out.Progress = make([]StepProgress, len(s.Progress))
	for i, p := range s.Progress {
		out.Progress[i] = p.clone()
	}
	return out
}
