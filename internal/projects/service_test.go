package projects

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/progress"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]Project), args.Error(1)
}

func (m *MockRepository) ListIdleProjects(ctx context.Context, updatedBefore time.Time) ([]Project, error) {
	args := m.Called(ctx, updatedBefore)
	return args.Get(0).([]Project), args.Error(1)
}

func (m *MockRepository) CreateProject(ctx context.Context, project *Project, seed []progress.StepProgress) error {
	args := m.Called(ctx, project, seed)
	return args.Error(0)
}

func (m *MockRepository) GetProject(ctx context.Context, userID, id string) (*Project, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) UpdateProject(ctx context.Context, project *Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockRepository) DeleteProject(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockRepository) ListStepProgress(ctx context.Context, projectID string) ([]progress.StepProgress, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]progress.StepProgress), args.Error(1)
}

func (m *MockRepository) UpsertStepProgress(ctx context.Context, projectID string, stepNumber int, patch progress.Patch) (*progress.StepProgress, error) {
	args := m.Called(ctx, projectID, stepNumber, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*progress.StepProgress), args.Error(1)
}

func (m *MockRepository) SetOverallProgress(ctx context.Context, projectID string, overall int, updatedAt time.Time) error {
	args := m.Called(ctx, projectID, overall, updatedAt)
	return args.Error(0)
}

func (m *MockRepository) AppendReminder(ctx context.Context, projectID string, stepNumber int, reminder progress.Reminder) error {
	args := m.Called(ctx, projectID, stepNumber, reminder)
	return args.Error(0)
}

func (m *MockRepository) SetReminderSent(ctx context.Context, projectID string, stepNumber int, reminderID string) error {
	args := m.Called(ctx, projectID, stepNumber, reminderID)
	return args.Error(0)
}

type capturePublisher struct {
	events map[string][]websocket.Event
}

func (p *capturePublisher) SendToUser(userID string, event websocket.Event) error {
	if p.events == nil {
		p.events = make(map[string][]websocket.Event)
	}
	p.events[userID] = append(p.events[userID], event)
	return nil
}

var fixedNow = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

func testCatalog() *curriculum.Catalog {
	return curriculum.NewCatalog([]curriculum.StepTemplate{
		{Number: 1, Title: "Idea", Phase: curriculum.PhaseMVP},
		{Number: 2, Title: "Landing", Phase: curriculum.PhaseMVP},
		{Number: 3, Title: "Demo", Phase: curriculum.PhaseDemo},
	})
}

func newTestService(repo Repository, pub Publisher) *Service {
	svc := NewService(repo, testCatalog(), pub, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreateProjectSeedsEveryStep(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)

	repo.On("CreateProject", mock.Anything, mock.AnythingOfType("*projects.Project"), mock.MatchedBy(func(seed []progress.StepProgress) bool {
		if len(seed) != 3 {
			return false
		}
		for i, rec := range seed {
			if rec.StepNumber != i+1 || rec.Status != progress.StatusNotStarted || rec.ProgressPercent != 0 {
				return false
			}
		}
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*Project).ID = "p1"
	}).Return(nil)

	project, err := svc.CreateProject(context.Background(), "u1", &CreateProjectRequest{Name: "Vibe", Description: "d"})
	require.NoError(t, err)

	assert.Equal(t, "p1", project.ID)
	assert.Equal(t, "u1", project.UserID)
	assert.Equal(t, 0, project.OverallProgress)
	assert.Equal(t, fixedNow, project.CreatedAt)
	assert.Equal(t, fixedNow, project.UpdatedAt)
	repo.AssertExpectations(t)
}

func TestCreateProjectValidation(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)

	tests := []CreateProjectRequest{
		{Name: ""},
		{Name: strings.Repeat("a", 81)},
		{Name: "ok", Description: strings.Repeat("d", 601)},
	}
	for _, req := range tests {
		_, err := svc.CreateProject(context.Background(), "u1", &req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	repo.On("CreateProject", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	_, err := svc.CreateProject(context.Background(), "u1", &CreateProjectRequest{Name: strings.Repeat("é", 80)})
	assert.NoError(t, err)
}

func TestUpdateStepNormalizesAndRecomputes(t *testing.T) {
	repo := new(MockRepository)
	pub := &capturePublisher{}
	svc := newTestService(repo, pub)
	ctx := context.Background()

	repo.On("GetProject", ctx, "u1", "p1").Return(&Project{ID: "p1", UserID: "u1"}, nil)

	over := 120
	repo.On("UpsertStepProgress", ctx, "p1", 2, mock.MatchedBy(func(p progress.Patch) bool {
		return *p.ProgressPercent == 100 &&
			*p.Status == progress.StatusCompleted &&
			p.CompletedAt.Value != nil && p.CompletedAt.Value.Equal(fixedNow)
	})).Return(&progress.StepProgress{StepNumber: 2, Status: progress.StatusCompleted, ProgressPercent: 100}, nil)

	repo.On("ListStepProgress", ctx, "p1").Return([]progress.StepProgress{
		{StepNumber: 1, ProgressPercent: 0},
		{StepNumber: 2, ProgressPercent: 100},
		{StepNumber: 3, ProgressPercent: 50},
	}, nil)
	repo.On("SetOverallProgress", ctx, "p1", 50, fixedNow).Return(nil)

	rec, err := svc.UpdateStep(ctx, "u1", "p1", 2, progress.Patch{ProgressPercent: &over})
	require.NoError(t, err)
	assert.Equal(t, progress.StatusCompleted, rec.Status)
	repo.AssertExpectations(t)

	require.Len(t, pub.events["u1"], 1)
	ev := pub.events["u1"][0]
	assert.Equal(t, websocket.EventStepUpdated, ev.Type)
	assert.Equal(t, 2, *ev.StepNumber)
}

func TestUpdateStepUnknownStep(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	repo.On("GetProject", mock.Anything, "u1", "p1").Return(&Project{ID: "p1", UserID: "u1"}, nil)

	_, err := svc.UpdateStep(context.Background(), "u1", "p1", 34, progress.DragPercent(10))
	assert.ErrorIs(t, err, ErrStepNotFound)
	repo.AssertNotCalled(t, "UpsertStepProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStepRejectsLongNotes(t *testing.T) {
	svc := newTestService(new(MockRepository), nil)
	_, err := svc.UpdateStep(context.Background(), "u1", "p1", 1, progress.EditNotes(strings.Repeat("n", MaxNotesLength+1)))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStepOtherUsersProject(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	repo.On("GetProject", mock.Anything, "intruder", "p1").Return(nil, ErrNotFound)

	_, err := svc.UpdateStep(context.Background(), "intruder", "p1", 1, progress.DragPercent(10))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProject(t *testing.T) {
	repo := new(MockRepository)
	pub := &capturePublisher{}
	svc := newTestService(repo, pub)
	ctx := context.Background()

	stored := &Project{ID: "p1", UserID: "u1", Name: "old", Description: "keep", UpdatedAt: fixedNow.Add(-time.Hour)}
	repo.On("GetProject", ctx, "u1", "p1").Return(stored, nil)
	repo.On("UpdateProject", ctx, mock.MatchedBy(func(p *Project) bool {
		return p.Name == "new" && p.Description == "keep" && p.UpdatedAt.Equal(fixedNow)
	})).Return(nil)

	name := "new"
	got, err := svc.UpdateProject(ctx, "u1", "p1", &UpdateProjectRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Len(t, pub.events["u1"], 1)
	repo.AssertExpectations(t)
}

func TestUpdateProjectEmptyPatchIsNoop(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	stored := &Project{ID: "p1", UserID: "u1", Name: "same"}
	repo.On("GetProject", mock.Anything, "u1", "p1").Return(stored, nil)

	got, err := svc.UpdateProject(context.Background(), "u1", "p1", &UpdateProjectRequest{})
	require.NoError(t, err)
	assert.Equal(t, "same", got.Name)
	repo.AssertNotCalled(t, "UpdateProject", mock.Anything, mock.Anything)
}

func TestGetProjectSnapshot(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	repo.On("GetProject", mock.Anything, "u1", "p1").Return(&Project{ID: "p1", UserID: "u1", Name: "n"}, nil)
	repo.On("ListStepProgress", mock.Anything, "p1").Return([]progress.StepProgress{progress.Default(1)}, nil)

	snap, err := svc.GetProject(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", snap.Project.ID)
	assert.Len(t, snap.Steps, 3)
	assert.Len(t, snap.Progress, 1)
}

func TestDeleteProject(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	repo.On("DeleteProject", mock.Anything, "u1", "p1").Return(nil)
	repo.On("DeleteProject", mock.Anything, "u1", "nope").Return(ErrNotFound)

	assert.NoError(t, svc.DeleteProject(context.Background(), "u1", "p1"))
	assert.ErrorIs(t, svc.DeleteProject(context.Background(), "u1", "nope"), ErrNotFound)
}
