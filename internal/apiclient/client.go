// Package apiclient is a typed client for the kanban REST API
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

// Error is a non-2xx answer from the server. It unwraps to the models error
// kind matching its status, so callers can use errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Unwrap maps the status to an error kind
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return models.ErrValidation
	case http.StatusUnauthorized:
		return models.ErrUnauthenticated
	case http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusNotFound:
		return models.ErrNotFound
	default:
		return nil
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client wraps http.Client with helpers for JSON requests
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client for the server at baseURL
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var eb errorBody
		if sonic.Unmarshal(data, &eb) == nil {
			apiErr.Code = eb.Error.Code
			apiErr.Message = eb.Error.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// ═══════════════════════════════════════════════════════════════════
// BOARDS
// ═══════════════════════════════════════════════════════════════════

// ListBoards returns the caller's boards, most recently updated first
func (c *Client) ListBoards(ctx context.Context, search string) ([]*models.Board, error) {
	path := "/boards"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var boards []*models.Board
	return boards, c.do(ctx, http.MethodGet, path, nil, &boards)
}

// CreateBoard creates a board owned by the caller
func (c *Client) CreateBoard(ctx context.Context, title, description string) (*models.Board, error) {
	var b models.Board
	if err := c.do(ctx, http.MethodPost, "/boards", map[string]string{
		"title":       title,
		"description": description,
	}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBoard loads the full board snapshot
func (c *Client) GetBoard(ctx context.Context, id int) (*models.BoardSnapshot, error) {
	var snap models.BoardSnapshot
	if err := c.do(ctx, http.MethodGet, "/boards/"+strconv.Itoa(id), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteBoard removes a board the caller owns
func (c *Client) DeleteBoard(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/boards/"+strconv.Itoa(id), nil, nil)
}

// AddMember adds userID to the board
func (c *Client) AddMember(ctx context.Context, boardID int, userID string) (*models.Board, error) {
	var b models.Board
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/boards/%d/members", boardID), map[string]string{"userId": userID}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// RemoveMember removes userID from the board
func (c *Client) RemoveMember(ctx context.Context, boardID int, userID string) (*models.Board, error) {
	var b models.Board
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/boards/%d/members/%s", boardID, url.PathEscape(userID)), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Activity returns the newest activity entries of a board
func (c *Client) Activity(ctx context.Context, boardID, limit int) ([]*models.Activity, error) {
	var entries []*models.Activity
	path := fmt.Sprintf("/boards/%d/activity", boardID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return entries, c.do(ctx, http.MethodGet, path, nil, &entries)
}

// ═══════════════════════════════════════════════════════════════════
// LISTS
// ═══════════════════════════════════════════════════════════════════

// CreateList appends a list to the board
func (c *Client) CreateList(ctx context.Context, boardID int, title string) (*models.List, error) {
	var l models.List
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/boards/%d/lists", boardID), map[string]string{"title": title}, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteList removes a list and its tasks
func (c *Client) DeleteList(ctx context.Context, listID int) error {
	return c.do(ctx, http.MethodDelete, "/lists/"+strconv.Itoa(listID), nil, nil)
}

// MoveList moves one list to newIndex and returns the board's lists in order
func (c *Client) MoveList(ctx context.Context, listID, newIndex int) ([]*models.List, error) {
	var lists []*models.List
	return lists, c.do(ctx, http.MethodPut, fmt.Sprintf("/lists/%d/move", listID), map[string]int{"newIndex": newIndex}, &lists)
}

// ReorderLists persists an explicit list order for the board
func (c *Client) ReorderLists(ctx context.Context, boardID int, order []models.ListPosition) ([]*models.List, error) {
	var lists []*models.List
	return lists, c.do(ctx, http.MethodPut, fmt.Sprintf("/boards/%d/lists/reorder", boardID), order, &lists)
}

// ═══════════════════════════════════════════════════════════════════
// TASKS
// ═══════════════════════════════════════════════════════════════════

// NewTask is the body of a task creation
type NewTask struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Labels      []models.Label  `json:"labels,omitempty"`
	Assignees   []string        `json:"assignees,omitempty"`
}

// MoveTask is the body of a task reorder
type MoveTask struct {
	TaskID            int `json:"taskId"`
	SourceListID      int `json:"sourceListId"`
	DestinationListID int `json:"destinationListId"`
	NewPosition       int `json:"newPosition"`
}

// CreateTask appends a task to a list
func (c *Client) CreateTask(ctx context.Context, listID int, t NewTask) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/lists/%d/tasks", listID), t, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask loads one task
func (c *Client) GetTask(ctx context.Context, taskID int) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+strconv.Itoa(taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, taskID int) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.Itoa(taskID), nil, nil)
}

// MoveTask relocates a task and returns the resulting orders of both lists
func (c *Client) MoveTask(ctx context.Context, m MoveTask) (*events.TaskMovedPayload, error) {
	var res events.TaskMovedPayload
	if err := c.do(ctx, http.MethodPut, "/tasks/reorder", m, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AssignTask adds (assign) or removes (unassign) an assignee
func (c *Client) AssignTask(ctx context.Context, taskID int, userID, action string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d/assign", taskID), map[string]string{
		"userId": userID,
		"action": action,
	}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SearchTasks finds tasks on a board whose title or description contains q
func (c *Client) SearchTasks(ctx context.Context, boardID int, q string) ([]*models.Task, error) {
	var tasks []*models.Task
	path := fmt.Sprintf("/boards/%d/tasks/search?q=%s", boardID, url.QueryEscape(q))
	return tasks, c.do(ctx, http.MethodGet, path, nil, &tasks)
}
