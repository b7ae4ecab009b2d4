package reminders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/auth"
)

func setupRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		auth.SetIdentity(c, &auth.Identity{UID: c.GetHeader("X-Test-User")})
		c.Next()
	})
	NewHandler(f.svc, zap.NewNop()).RegisterRoutes(api)
	return r, f
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerReminderFlow(t *testing.T) {
	r, f := setupRouter(t)
	body := map[string]string{"remind_at": "2025-02-05T08:00:00Z", "message": "Record demo"}

	w := do(t, r, http.MethodPost, fmt.Sprintf("/api/reminders?project_id=%s&step_number=2", f.project.ID), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, f.project.ID, created.ProjectID)
	assert.Equal(t, 2, created.StepNumber)
	assert.True(t, created.RemindAt.Equal(time.Date(2025, 2, 5, 8, 0, 0, 0, time.UTC)))

	w = do(t, r, http.MethodGet, "/api/reminders?pending=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = do(t, r, http.MethodPost, "/api/reminders/"+created.ID+"/sent", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/reminders?pending=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandlerReminderErrors(t *testing.T) {
	r, f := setupRouter(t)
	ok := map[string]string{"remind_at": "2025-02-05T08:00:00Z", "message": "x"}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"missing project", http.MethodPost, "/api/reminders?step_number=1", ok, http.StatusBadRequest},
		{"bad step", http.MethodPost, "/api/reminders?project_id=" + f.project.ID + "&step_number=two", ok, http.StatusBadRequest},
		{"missing time", http.MethodPost, "/api/reminders?project_id=" + f.project.ID + "&step_number=1", map[string]string{"message": "x"}, http.StatusBadRequest},
		{"unknown project", http.MethodPost, "/api/reminders?project_id=nope&step_number=1", ok, http.StatusNotFound},
		{"unknown step", http.MethodPost, "/api/reminders?project_id=" + f.project.ID + "&step_number=7", ok, http.StatusNotFound},
		{"bad pending", http.MethodGet, "/api/reminders?pending=maybe", nil, http.StatusBadRequest},
		{"unknown reminder", http.MethodPost, "/api/reminders/nope/sent", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
