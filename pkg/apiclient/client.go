// Package apiclient is the HTTP client for the tracker API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/progress"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// APIError is a non-2xx response. Body is the decoded JSON when the
// response was JSON, otherwise the raw text.
type APIError struct {
	StatusCode int
	Body       interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message())
}

// Message is the server's error text when one can be found.
func (e *APIError) Message() string {
	switch b := e.Body.(type) {
	case map[string]interface{}:
		for _, key := range []string{"error", "detail", "message"} {
			if s, ok := b[key].(string); ok && s != "" {
				return s
			}
		}
		raw, _ := json.Marshal(b)
		return string(raw)
	case string:
		if b != "" {
			return b
		}
	case nil:
	default:
		raw, _ := json.Marshal(b)
		return string(raw)
	}
	return http.StatusText(e.StatusCode)
}

// Identity is the caller as seen by GET /api/me.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Reminder is an entry of GET /api/reminders.
type Reminder struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	StepNumber int       `json:"step_number"`
	RemindAt   time.Time `json:"remind_at"`
	Message    string    `json:"message"`
	Sent       bool      `json:"sent"`
}

// Archive is the result of an archived export.
type Archive struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Client calls the tracker API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

var _ progress.API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client for baseURL, e.g. http://localhost:8000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) Me(ctx context.Context) (Identity, error) {
	var out Identity
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &out)
	return out, err
}

// Steps returns the public step catalog.
func (c *Client) Steps(ctx context.Context) ([]curriculum.StepTemplate, error) {
	var out []curriculum.StepTemplate
	err := c.do(ctx, http.MethodGet, "/api/steps", nil, &out)
	return out, err
}

func (c *Client) ListProjects(ctx context.Context) ([]progress.Project, error) {
	var out []progress.Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (progress.Project, error) {
	var out progress.Project
	body := map[string]string{"name": name, "description": description}
	err := c.do(ctx, http.MethodPost, "/api/projects", body, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, projectID string) (progress.Snapshot, error) {
	var out progress.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID), nil, &out)
	return out, err
}

// UpdateProject sends only the non-nil fields.
func (c *Client) UpdateProject(ctx context.Context, projectID string, name, description *string) (progress.Project, error) {
	body := map[string]string{}
	if name != nil {
		body["name"] = *name
	}
	if description != nil {
		body["description"] = *description
	}
	var out progress.Project
	err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(projectID), body, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(projectID), nil, nil)
}

func (c *Client) ListSteps(ctx context.Context, projectID string) ([]progress.StepProgress, error) {
	var out []progress.StepProgress
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/steps", nil, &out)
	return out, err
}

func (c *Client) UpdateStep(ctx context.Context, projectID string, stepNumber int, patch progress.Patch) (progress.StepProgress, error) {
	var out progress.StepProgress
	path := fmt.Sprintf("/api/projects/%s/steps/%d", url.PathEscape(projectID), stepNumber)
	err := c.do(ctx, http.MethodPut, path, patch, &out)
	return out, err
}

func (c *Client) CreateReminder(ctx context.Context, projectID string, stepNumber int, req progress.ReminderRequest) (progress.Reminder, error) {
	q := url.Values{}
	q.Set("project_id", projectID)
	q.Set("step_number", strconv.Itoa(stepNumber))
	var out progress.Reminder
	err := c.do(ctx, http.MethodPost, "/api/reminders?"+q.Encode(), req, &out)
	return out, err
}

func (c *Client) ListReminders(ctx context.Context, pendingOnly bool) ([]Reminder, error) {
	path := "/api/reminders"
	if pendingOnly {
		path += "?pending=true"
	}
	var out []Reminder
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Export downloads the rendered file and the server's suggested file name.
func (c *Client) Export(ctx context.Context, projectID, format string) ([]byte, string, error) {
	path := fmt.Sprintf("/api/projects/%s/export?format=%s", url.PathEscape(projectID), url.QueryEscape(format))
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}
	return data, fileName(resp.Header.Get("Content-Disposition")), nil
}

// ArchiveExport asks the server to store the export and return a link.
func (c *Client) ArchiveExport(ctx context.Context, projectID, format string) (Archive, error) {
	path := fmt.Sprintf("/api/projects/%s/export?format=%s&archive=true", url.PathEscape(projectID), url.QueryEscape(format))
	var out Archive
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, in interface{}) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	var parsed interface{}
	if len(raw) > 0 && json.Unmarshal(raw, &parsed) == nil {
		apiErr.Body = parsed
	}
	return nil, apiErr
}

func fileName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
