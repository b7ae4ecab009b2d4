package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/auth"
)

func newTestServer(t *testing.T) (*Manager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := NewManager(zap.NewNop(), nil)
	t.Cleanup(m.Close)

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		if uid := c.Query("uid"); uid != "" {
			auth.SetIdentity(c, &auth.Identity{UID: uid})
		}
		c.Next()
	})
	NewHandler(m, zap.NewNop()).RegisterRoutes(api)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return m, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
}

func dial(t *testing.T, url string) *gorilla.Conn {
	t.Helper()
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendToUser(t *testing.T) {
	m, url := newTestServer(t)

	alice := dial(t, url+"?uid=alice")
	bob := dial(t, url+"?uid=bob")
	require.Eventually(t, func() bool { return m.ConnectionCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	ev := NewEvent(EventStepUpdated, "p1", map[string]int{"progress_percent": 60}).ForStep(4)
	require.NoError(t, m.SendToUser("alice", ev))

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, EventStepUpdated, got.Type)
	assert.Equal(t, "p1", got.ProjectID)
	require.NotNil(t, got.StepNumber)
	assert.Equal(t, 4, *got.StepNumber)

	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var none Event
	assert.Error(t, bob.ReadJSON(&none))

	assert.ErrorIs(t, m.SendToUser("carol", ev), ErrUserNotConnected)
}

func TestPingGetsPong(t *testing.T) {
	m, url := newTestServer(t)
	conn := dial(t, url+"?uid=alice")
	require.Eventually(t, func() bool { return m.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventPong, got.Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	m, url := newTestServer(t)
	conn := dial(t, url+"?uid=alice")
	require.Eventually(t, func() bool { return m.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, m.Connected("alice"))
	assert.Equal(t, 0, m.Connected("bob"))

	conn.Close()
	assert.Eventually(t, func() bool { return m.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRejectsAnonymous(t *testing.T) {
	_, url := newTestServer(t)
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestCloseDisconnectsClients(t *testing.T) {
	m, url := newTestServer(t)
	conn := dial(t, url+"?uid=alice")
	require.Eventually(t, func() bool { return m.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.Close()
	assert.Equal(t, 0, m.ConnectionCount())
	assert.ErrorIs(t, m.SendToUser("alice", NewEvent(EventProjectUpdated, "p1", nil)), ErrUserNotConnected)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	assert.Error(t, conn.ReadJSON(&got))
}
