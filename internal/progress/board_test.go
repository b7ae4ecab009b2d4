package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe-tracker/tracker-backend/internal/curriculum"
)

type fakeAPI struct {
	updateFn   func(ctx context.Context, projectID string, stepNumber int, patch Patch) (StepProgress, error)
	reminderFn func(ctx context.Context, projectID string, stepNumber int, req ReminderRequest) (Reminder, error)

	mu            sync.Mutex
	reminderCalls int
}

func (f *fakeAPI) UpdateStep(ctx context.Context, projectID string, stepNumber int, patch Patch) (StepProgress, error) {
	return f.updateFn(ctx, projectID, stepNumber, patch)
}

func (f *fakeAPI) CreateReminder(ctx context.Context, projectID string, stepNumber int, req ReminderRequest) (Reminder, error) {
	f.mu.Lock()
	f.reminderCalls++
	f.mu.Unlock()
	return f.reminderFn(ctx, projectID, stepNumber, req)
}

func testSnapshot() Snapshot {
	return Snapshot{
		Project: Project{ID: "p1", Name: "demo"},
		Steps: []curriculum.StepTemplate{
			{Number: 1, Title: "Idea", Phase: curriculum.PhaseMVP},
			{Number: 2, Title: "Landing page", Phase: curriculum.PhaseMVP},
		},
		Progress: []StepProgress{Default(1)},
	}
}

func TestBoardOptimisticBeforeSend(t *testing.T) {
	var board *Board
	var seen StepProgress
	api := &fakeAPI{
		updateFn: func(_ context.Context, projectID string, n int, patch Patch) (StepProgress, error) {
			assert.Equal(t, "p1", projectID)
			seen = board.Step(n)
			rec := Apply(Default(n), patch)
			return rec, nil
		},
	}
	renders := 0
	board = NewBoard(api, testSnapshot(), WithRender(func(Snapshot) { renders++ }))

	got, err := board.UpdateStep(context.Background(), 1, DragPercent(100))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, seen.Status)
	assert.Equal(t, 100, seen.ProgressPercent)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 2, renders)
	assert.NoError(t, board.Err())
}

func TestBoardUpdateMissingRecordUsesDefault(t *testing.T) {
	api := &fakeAPI{
		updateFn: func(_ context.Context, _ string, n int, patch Patch) (StepProgress, error) {
			return Apply(Default(n), patch), nil
		},
	}
	board := NewBoard(api, testSnapshot())

	_, err := board.UpdateStep(context.Background(), 2, EditNotes("draft copy"))
	require.NoError(t, err)

	assert.Equal(t, "draft copy", board.Step(2).Notes)
	assert.Len(t, board.Snapshot().Progress, 2)
}

func TestBoardFailureKeepsOptimisticValue(t *testing.T) {
	boom := errors.New("status 500")
	api := &fakeAPI{
		updateFn: func(context.Context, string, int, Patch) (StepProgress, error) {
			return StepProgress{}, boom
		},
	}
	board := NewBoard(api, testSnapshot())

	got, err := board.UpdateStep(context.Background(), 1, DragPercent(40))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 40, got.ProgressPercent)
	assert.Equal(t, 40, board.Step(1).ProgressPercent)
	assert.Equal(t, StatusInProgress, board.Step(1).Status)
	assert.ErrorIs(t, board.Err(), boom)

	board.ClearErr()
	assert.NoError(t, board.Err())
}

type pendingCall struct {
	patch Patch
	reply chan StepProgress
}

func TestBoardDiscardsStaleResponse(t *testing.T) {
	calls := make(chan pendingCall)
	api := &fakeAPI{
		updateFn: func(_ context.Context, _ string, n int, patch Patch) (StepProgress, error) {
			c := pendingCall{patch: patch, reply: make(chan StepProgress)}
			calls <- c
			return <-c.reply, nil
		},
	}
	board := NewBoard(api, testSnapshot())
	ctx := context.Background()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = board.UpdateStep(ctx, 1, DragPercent(30))
	}()
	first := <-calls

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = board.UpdateStep(ctx, 1, DragPercent(60))
	}()
	second := <-calls

	assert.Equal(t, 60, *second.patch.ProgressPercent)
	assert.Equal(t, 60, board.Step(1).ProgressPercent)

	second.reply <- Apply(Default(1), second.patch)
	waitClosed(t, secondDone)
	first.reply <- Apply(Default(1), first.patch)
	waitClosed(t, firstDone)

	assert.Equal(t, 60, board.Step(1).ProgressPercent)
}

type settledCall struct {
	patch Patch
	reply chan StepProgress
	fail  chan error
}

func TestBoardOlderSuccessAfterNewerFailure(t *testing.T) {
	calls := make(chan settledCall)
	api := &fakeAPI{
		updateFn: func(_ context.Context, _ string, n int, patch Patch) (StepProgress, error) {
			c := settledCall{patch: patch, reply: make(chan StepProgress), fail: make(chan error)}
			calls <- c
			select {
			case rec := <-c.reply:
				return rec, nil
			case err := <-c.fail:
				return StepProgress{}, err
			}
		},
	}
	board := NewBoard(api, testSnapshot())
	ctx := context.Background()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = board.UpdateStep(ctx, 1, DragPercent(30))
	}()
	first := <-calls

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = board.UpdateStep(ctx, 1, DragPercent(60))
	}()
	second := <-calls

	boom := errors.New("boom")
	second.fail <- boom
	waitClosed(t, secondDone)
	assert.Equal(t, 60, board.Step(1).ProgressPercent)

	first.reply <- Apply(Default(1), first.patch)
	waitClosed(t, firstDone)

	assert.Equal(t, 60, board.Step(1).ProgressPercent)
	assert.ErrorIs(t, board.Err(), boom)
}

func TestBoardCloseDropsLateResult(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{
		updateFn: func(_ context.Context, _ string, n int, patch Patch) (StepProgress, error) {
			close(entered)
			<-release
			return StepProgress{StepNumber: n, Status: StatusSkipped, Reminders: []Reminder{}}, nil
		},
	}
	renders := 0
	board := NewBoard(api, testSnapshot(), WithRender(func(Snapshot) { renders++ }))

	done := make(chan error, 1)
	go func() {
		_, err := board.UpdateStep(context.Background(), 1, SelectStatus(StatusInProgress))
		done <- err
	}()
	<-entered
	board.Close()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrBoardClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("update did not return")
	}
	assert.Equal(t, StatusInProgress, board.Step(1).Status)
	assert.Equal(t, 1, renders)

	_, err := board.UpdateStep(context.Background(), 1, Reset())
	assert.ErrorIs(t, err, ErrBoardClosed)
}

func TestBoardReminderWithoutTimeMakesNoRequest(t *testing.T) {
	api := &fakeAPI{
		reminderFn: func(context.Context, string, int, ReminderRequest) (Reminder, error) {
			return Reminder{}, nil
		},
	}
	board := NewBoard(api, testSnapshot())

	_, err := board.CreateReminder(context.Background(), 1, ReminderDraft{Message: "soon"})
	assert.ErrorIs(t, err, ErrReminderTimeMissing)
	assert.Equal(t, 0, api.reminderCalls)
}

func TestBoardCreateReminderAppends(t *testing.T) {
	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		reminderFn: func(_ context.Context, projectID string, n int, req ReminderRequest) (Reminder, error) {
			assert.Equal(t, "p1", projectID)
			assert.Equal(t, 2, n)
			assert.Equal(t, "Step 2: Landing page", req.Message)
			return Reminder{ID: "r1", RemindAt: req.RemindAt, Message: req.Message}, nil
		},
	}
	board := NewBoard(api, testSnapshot())

	r, err := board.CreateReminder(context.Background(), 2, ReminderDraft{RemindAt: at})
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)

	reminders := board.Step(2).Reminders
	require.Len(t, reminders, 1)
	assert.False(t, reminders[0].Sent)
}

func TestBoardSnapshotIsCopy(t *testing.T) {
	board := NewBoard(&fakeAPI{}, testSnapshot())
	snap := board.Snapshot()
	snap.Progress[0].Notes = "changed"
	assert.Equal(t, "", board.Step(1).Notes)

	phases := board.Phases()
	require.Len(t, phases, 1)
	assert.Equal(t, curriculum.PhaseMVP, phases[0].Phase)
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
