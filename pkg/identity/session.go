package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RefreshWindow is how close to expiry a token is refreshed.
const RefreshWindow = time.Minute

var ErrNoSession = errors.New("not signed in")

// Session is a signed-in Firebase user.
type Session struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	UID          string    `json:"uid"`
}

// NeedsRefresh reports whether the ID token expires within RefreshWindow.
func (s *Session) NeedsRefresh(now time.Time) bool {
	return !now.Add(RefreshWindow).Before(s.ExpiresAt)
}

// FileStore keeps the session in a 0600 JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath is <user config dir>/vibetracker/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "vibetracker", "session.json"), nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load() (*Session, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.RefreshToken == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f *FileStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Delete signs out. A missing file is not an error.
func (f *FileStore) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// TokenSource serves the session's ID token, refreshing and persisting it
// when it is about to expire.
type TokenSource struct {
	client *Client
	store  *FileStore

	mu      sync.Mutex
	session *Session
}

func NewTokenSource(client *Client, store *FileStore, session *Session) *TokenSource {
	return &TokenSource{client: client, store: store, session: session}
}

func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.session.NeedsRefresh(t.client.now()) {
		return t.session.IDToken, nil
	}
	fresh, err := t.client.Refresh(ctx, t.session)
	if err != nil {
		return "", err
	}
	t.session = fresh
	if t.store != nil {
		if err := t.store.Save(fresh); err != nil {
			return "", err
		}
	}
	return fresh.IDToken, nil
}

// Session returns a copy of the current session.
func (t *TokenSource) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.session
}
