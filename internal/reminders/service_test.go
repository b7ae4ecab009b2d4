package reminders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/notifications/websocket"
	"vibe-tracker/tracker-backend/internal/projects"
)

type capturePublisher struct {
	events []websocket.Event
}

func (p *capturePublisher) SendToUser(_ string, event websocket.Event) error {
	p.events = append(p.events, event)
	return nil
}

var fixedNow = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	projects *projects.Service
	pub      *capturePublisher
	project  *projects.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := curriculum.NewCatalog([]curriculum.StepTemplate{
		{Number: 1, Title: "Idea", Phase: curriculum.PhaseMVP},
		{Number: 2, Title: "Landing", Phase: curriculum.PhaseMVP},
	})
	projectService := projects.NewService(projects.NewMemoryRepository(), catalog, nil, zap.NewNop())
	project, err := projectService.CreateProject(context.Background(), "u1", &projects.CreateProjectRequest{Name: "Vibe"})
	require.NoError(t, err)

	pub := &capturePublisher{}
	svc := NewService(NewMemoryRepository(), projectService, pub, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, projects: projectService, pub: pub, project: project}
}

func request(at time.Time, msg string) *CreateReminderRequest {
	return &CreateReminderRequest{RemindAt: &at, Message: msg}
}

func TestCreateEmbedsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 2, 4, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	rem, err := f.svc.Create(ctx, "u1", f.project.ID, 2, request(at, "Ship it"))
	require.NoError(t, err)
	assert.NotEmpty(t, rem.ID)
	assert.False(t, rem.Sent)
	assert.Equal(t, time.UTC, rem.RemindAt.Location())
	assert.True(t, rem.RemindAt.Equal(at))
	assert.Equal(t, fixedNow, rem.CreatedAt)

	records, err := f.projects.ListSteps(ctx, "u1", f.project.ID)
	require.NoError(t, err)
	require.Len(t, records[1].Reminders, 1)
	assert.Equal(t, rem.ID, records[1].Reminders[0].ID)
	assert.Empty(t, records[0].Reminders)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, websocket.EventReminderCreated, f.pub.events[0].Type)
	require.NotNil(t, f.pub.events[0].StepNumber)
	assert.Equal(t, 2, *f.pub.events[0].StepNumber)
}

func TestCreateRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		user      string
		projectID string
		step      int
		req       *CreateReminderRequest
		want      error
	}{
		{"missing time", "u1", f.project.ID, 1, &CreateReminderRequest{Message: "x"}, ErrInvalidInput},
		{"empty message", "u1", f.project.ID, 1, request(fixedNow, ""), ErrInvalidInput},
		{"long message", "u1", f.project.ID, 1, request(fixedNow, strings.Repeat("a", MaxMessageLength+1)), ErrInvalidInput},
		{"foreign project", "u2", f.project.ID, 1, request(fixedNow, "x"), projects.ErrNotFound},
		{"unknown step", "u1", f.project.ID, 9, request(fixedNow, "x"), projects.ErrStepNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.user, tt.projectID, tt.step, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.pub.events)
}

func TestMessageLengthCountsRunes(t *testing.T) {
	req := request(fixedNow, strings.Repeat("é", MaxMessageLength))
	assert.NoError(t, req.Validate())
}

func TestListOrdersAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, err := f.svc.Create(ctx, "u1", f.project.ID, 1, request(fixedNow.Add(48*time.Hour), "late"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "u1", f.project.ID, 1, request(fixedNow.Add(time.Hour), "early"))
	require.NoError(t, err)

	all, err := f.svc.List(ctx, "u1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "early", all[0].Message)
	assert.Equal(t, "late", all[1].Message)

	_, err = f.svc.MarkSent(ctx, "u1", late.ID)
	require.NoError(t, err)

	pending, err := f.svc.List(ctx, "u1", ListFilter{PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "early", pending[0].Message)

	other, err := f.svc.List(ctx, "u2", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMarkSentFlipsBothCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rem, err := f.svc.Create(ctx, "u1", f.project.ID, 1, request(fixedNow, "nudge"))
	require.NoError(t, err)

	got, err := f.svc.MarkSent(ctx, "u1", rem.ID)
	require.NoError(t, err)
	assert.True(t, got.Sent)

	records, err := f.projects.ListSteps(ctx, "u1", f.project.ID)
	require.NoError(t, err)
	require.Len(t, records[0].Reminders, 1)
	assert.True(t, records[0].Reminders[0].Sent)

	again, err := f.svc.MarkSent(ctx, "u1", rem.ID)
	require.NoError(t, err)
	assert.True(t, again.Sent)

	_, err = f.svc.MarkSent(ctx, "u2", rem.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
