// Package client talks to the task board REST backend. Its Confirm method
// lets an optimistic engine use the backend as the authoritative store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/optimistic"
	"taskboard/internal/query"
	"taskboard/internal/view"
)

const (
	memberHeader    = "X-Member-ID"
	maxResponseSize = 4 << 20
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the backend root, for example "http://localhost:8080".
	BaseURL string
	// MemberID is sent with every request as the acting member.
	MemberID string
	// Timeout bounds every request. Ignored when HTTPClient is set.
	Timeout time.Duration
	// HTTPClient overrides the transport. Defaults to a client with Timeout.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

var _ optimistic.Confirmer = (*Client)(nil)

// Client is a typed client for the REST backend.
type Client struct {
	baseURL    string
	memberID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		memberID:   strings.TrimSpace(cfg.MemberID),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// As returns a copy of the client acting as another member.
func (c *Client) As(memberID string) *Client {
	clone := *c
	clone.memberID = strings.TrimSpace(memberID)
	return &clone
}

// MemberID returns the acting member.
func (c *Client) MemberID() string {
	return c.memberID
}

// APIError is returned for non-2xx responses. It matches the optimistic
// failure class of its status code with errors.Is.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the failure classes. 403 is both a
// rejection and a permission denial.
func (e *APIError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return []error{optimistic.ErrNotFound}
	case http.StatusForbidden:
		return []error{optimistic.ErrRejected, optimistic.ErrPermissionDenied}
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return []error{optimistic.ErrRejected}
	default:
		return []error{optimistic.ErrNetworkFailure}
	}
}

// do sends a JSON request and decodes a 2xx response into out, which may be
// nil. Transport failures, including an expired context, wrap
// optimistic.ErrNetworkFailure.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.memberID != "" {
		req.Header.Set(memberHeader, c.memberID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", optimistic.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", optimistic.ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		c.logger.Debug("request rejected",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health reports whether the backend answers its readiness endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/healthz", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: backend status %q", optimistic.ErrNetworkFailure, resp.Status)
	}
	return nil
}

// CreateWorkspace creates a workspace owned by the acting member.
func (c *Client) CreateWorkspace(ctx context.Context, name, description string) (models.Workspace, error) {
	var resp struct {
		Workspace models.Workspace `json:"workspace"`
	}
	err := c.do(ctx, http.MethodPost, "/api/workspaces", map[string]string{"name": name, "description": description}, &resp)
	return resp.Workspace, err
}

// GetWorkspace fetches a workspace and the acting member's role in it.
func (c *Client) GetWorkspace(ctx context.Context, id string) (models.Workspace, models.Role, error) {
	var resp struct {
		Workspace models.Workspace `json:"workspace"`
		Role      models.Role      `json:"role"`
	}
	err := c.do(ctx, http.MethodGet, "/api/workspaces/"+url.PathEscape(id), nil, &resp)
	return resp.Workspace, resp.Role, err
}

// AddMember invites memberID into a workspace with role.
func (c *Client) AddMember(ctx context.Context, workspaceID, memberID string, role models.Role) (models.Workspace, error) {
	var resp struct {
		Workspace models.Workspace `json:"workspace"`
	}
	body := map[string]any{"member": memberID, "role": role}
	err := c.do(ctx, http.MethodPost, "/api/workspaces/"+url.PathEscape(workspaceID)+"/members", body, &resp)
	return resp.Workspace, err
}

// RemoveMember drops memberID from a workspace.
func (c *Client) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	return c.do(ctx, http.MethodDelete, "/api/workspaces/"+url.PathEscape(workspaceID)+"/members/"+url.PathEscape(memberID), nil, nil)
}

// ListProjects returns the projects of a workspace.
func (c *Client) ListProjects(ctx context.Context, workspaceID string) ([]models.Project, error) {
	var resp struct {
		Projects []models.Project `json:"projects"`
	}
	err := c.do(ctx, http.MethodGet, "/api/workspaces/"+url.PathEscape(workspaceID)+"/projects", nil, &resp)
	return resp.Projects, err
}

// CreateProject adds a project to a workspace. An empty color lets the
// backend pick one.
func (c *Client) CreateProject(ctx context.Context, workspaceID string, p models.Project) (models.Project, error) {
	var resp struct {
		Project models.Project `json:"project"`
	}
	body := map[string]string{"name": p.Name, "description": p.Description, "color": p.Color}
	err := c.do(ctx, http.MethodPost, "/api/workspaces/"+url.PathEscape(workspaceID)+"/projects", body, &resp)
	return resp.Project, err
}

// DeleteProject removes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
}

// ListTasks returns the tasks of a project filtered and sorted by cfg on the
// backend.
func (c *Client) ListTasks(ctx context.Context, projectID string, cfg query.Config) ([]*models.Task, error) {
	var resp struct {
		Tasks []*models.Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("/api/projects/"+url.PathEscape(projectID)+"/tasks", cfg.Values()), nil, &resp)
	return resp.Tasks, err
}

// Board returns the projections of a project computed by the backend.
func (c *Client) Board(ctx context.Context, projectID string, cfg query.Config, opts view.Options) (view.Board, error) {
	values := cfg.Values()
	if opts.HideEmpty {
		values.Set("hide_empty", "true")
	}
	var resp struct {
		Board view.Board `json:"board"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("/api/projects/"+url.PathEscape(projectID)+"/board", values), nil, &resp)
	return resp.Board, err
}

// CreateTask creates a task in a project. The task's own id is ignored.
func (c *Client) CreateTask(ctx context.Context, projectID string, t models.Task) (*models.Task, error) {
	t.ID = ""
	var resp struct {
		Task *models.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/tasks", t, &resp)
	return resp.Task, err
}

// UpdateTask applies a partial update and returns the canonical task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.Patch) (*models.Task, error) {
	var resp struct {
		Task *models.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), patch, &resp)
	return resp.Task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// Confirm implements optimistic.Confirmer.
func (c *Client) Confirm(ctx context.Context, m optimistic.Mutation) (*models.Task, error) {
	switch m.Kind {
	case optimistic.KindCreate:
		if m.Task == nil {
			return nil, fmt.Errorf("%w: create without a task", optimistic.ErrRejected)
		}
		return c.CreateTask(ctx, m.Task.ProjectID, *m.Task)
	case optimistic.KindUpdate:
		return c.UpdateTask(ctx, m.TaskID, m.Patch)
	case optimistic.KindDelete:
		return nil, c.DeleteTask(ctx, m.TaskID)
	default:
		return nil, fmt.Errorf("%w: unknown mutation kind %q", optimistic.ErrRejected, m.Kind)
	}
}

func withQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}
