package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var (
	// ErrUserNotConnected is returned when a user has no open connection.
	ErrUserNotConnected = errors.New("user not connected")
	ErrManagerClosed    = errors.New("websocket manager closed")
)

// subscriber is one open socket of a signed-in user.
type subscriber struct {
	id     string
	userID string
	conn   *websocket.Conn
	events chan Event
}

// Manager fans events out to every socket a user has open. The events
// channel of a subscriber is closed only by detach, under the write lock.
type Manager struct {
	mu       sync.RWMutex
	byUser   map[string]map[string]*subscriber
	closed   bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewManager creates a Manager. allowedOrigins restricts the upgrade; an
// empty list accepts any origin.
func NewManager(logger *zap.Logger, allowedOrigins []string) *Manager {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Manager{
		byUser: make(map[string]map[string]*subscriber),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin] || origins["*"]
			},
		},
	}
}

// HandleConnection upgrades the request and subscribes it for userID. It
// returns the connection id.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (string, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return "", fmt.Errorf("failed to upgrade connection: %w", err)
	}

	sub := &subscriber{
		id:     uuid.New().String(),
		userID: userID,
		conn:   conn,
		events: make(chan Event, sendBuffer),
	}
	if err := m.attach(sub); err != nil {
		conn.Close()
		return "", err
	}

	go m.readLoop(sub)
	go m.writeLoop(sub)
	return sub.id, nil
}

func (m *Manager) attach(sub *subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	set, ok := m.byUser[sub.userID]
	if !ok {
		set = make(map[string]*subscriber)
		m.byUser[sub.userID] = set
	}
	set[sub.id] = sub
	m.logger.Debug("Websocket subscribed", zap.String("user_id", sub.userID), zap.String("connection_id", sub.id))
	return nil
}

// detach removes sub and closes its queue. Safe to call more than once.
func (m *Manager) detach(sub *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.byUser[sub.userID]
	if _, ok := set[sub.id]; !ok {
		return
	}
	delete(set, sub.id)
	if len(set) == 0 {
		delete(m.byUser, sub.userID)
	}
	close(sub.events)
	m.logger.Debug("Websocket unsubscribed", zap.String("user_id", sub.userID), zap.String("connection_id", sub.id))
}

// readLoop only understands keepalive pings; it exists to notice the peer
// going away and to answer pongs.
func (m *Manager) readLoop(sub *subscriber) {
	defer func() {
		m.detach(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := sub.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("websocket read failed", zap.String("connection_id", sub.id), zap.Error(err))
			}
			return
		}
		if msg.Type == "ping" {
			m.mu.RLock()
			if _, ok := m.byUser[sub.userID][sub.id]; ok {
				m.enqueue(sub, NewEvent(EventPong, "", nil))
			}
			m.mu.RUnlock()
		}
	}
}

func (m *Manager) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.events:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue never blocks; a full queue drops the event. Callers hold m.mu.
func (m *Manager) enqueue(sub *subscriber, event Event) bool {
	select {
	case sub.events <- event:
		return true
	default:
		m.logger.Warn("websocket buffer full, dropping event",
			zap.String("connection_id", sub.id),
			zap.String("type", string(event.Type)))
		return false
	}
}

// SendToUser queues event on every connection of userID.
func (m *Manager) SendToUser(userID string, event Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.byUser[userID]
	if len(set) == 0 {
		return ErrUserNotConnected
	}
	delivered := 0
	for _, sub := range set {
		if m.enqueue(sub, event) {
			delivered++
		}
	}
	if delivered == 0 {
		return fmt.Errorf("all %d connections of user are backed up", len(set))
	}
	return nil
}

// ConnectionCount is the number of open sockets across all users.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, set := range m.byUser {
		n += len(set)
	}
	return n
}

// Connected reports how many sockets userID has open.
func (m *Manager) Connected(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID])
}

// Close unsubscribes everyone. Writers send a close frame as their queues
// drain.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var subs []*subscriber
	for _, set := range m.byUser {
		for _, sub := range set {
			subs = append(subs, sub)
		}
	}
	m.mu.Unlock()

	for _, sub := range subs {
		m.detach(sub)
	}
}
