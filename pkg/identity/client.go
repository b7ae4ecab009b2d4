// Package identity signs users in against the Firebase Auth REST API.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"

	defaultTimeout = 15 * time.Second
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrSessionExpired     = errors.New("session expired, sign in again")
)

// AuthError is a Firebase error code that has no dedicated sentinel.
type AuthError struct {
	StatusCode int
	Code       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error %d: %s", e.StatusCode, e.Code)
}

// Client talks to identitytoolkit and securetoken.
type Client struct {
	apiKey      string
	identityURL string
	tokenURL    string
	httpClient  *http.Client
	now         func() time.Time
}

type Option func(*Client)

func WithIdentityURL(u string) Option {
	return func(c *Client) { c.identityURL = strings.TrimRight(u, "/") }
}

func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		identityURL: DefaultIdentityURL,
		tokenURL:    DefaultTokenURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var resp accountResponse
	err := c.postJSON(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.session(resp), nil
}

// SignUp creates an account. A non-empty displayName is set with a follow-up
// accounts:update call.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	var resp accountResponse
	err := c.postJSON(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	s := c.session(resp)
	if displayName == "" {
		return s, nil
	}

	var updated accountResponse
	err = c.postJSON(ctx, "accounts:update", map[string]interface{}{
		"idToken":           s.IDToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("set display name: %w", err)
	}
	s.DisplayName = displayName
	if updated.IDToken != "" {
		s.IDToken = updated.IDToken
		s.RefreshToken = updated.RefreshToken
		s.ExpiresAt = c.expiry(updated.ExpiresIn)
	}
	return s, nil
}

// Refresh exchanges the session's refresh token for a new ID token.
func (c *Client) Refresh(ctx context.Context, s *Session) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.tokenURL), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := c.send(req, &resp); err != nil {
		return nil, err
	}
	out := *s
	out.IDToken = resp.IDToken
	out.RefreshToken = resp.RefreshToken
	out.ExpiresAt = c.expiry(resp.ExpiresIn)
	if resp.UserID != "" {
		out.UID = resp.UserID
	}
	return &out, nil
}

func (c *Client) session(r accountResponse) *Session {
	return &Session{
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    c.expiry(r.ExpiresIn),
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		UID:          r.LocalID,
	}
}

func (c *Client) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return c.now().Add(time.Duration(secs) * time.Second).UTC()
}

func (c *Client) withKey(u string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "key=" + url.QueryEscape(c.apiKey)
}

func (c *Client) postJSON(ctx context.Context, method string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.identityURL+"/"+method), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return authError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authError maps Firebase error codes. Messages look like "WEAK_PASSWORD :
// Password should be at least 6 characters".
func authError(status int, raw []byte) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)

	code := body.Error.Message
	if code == "" {
		code = body.ErrorDescription
	}
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND", "INVALID_ID_TOKEN":
		return ErrSessionExpired
	}
	if code == "" {
		code = http.StatusText(status)
	}
	return &AuthError{StatusCode: status, Code: code}
}
