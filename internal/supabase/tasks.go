package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ruzziq8-cell/buzzlab/internal/models"
)

// NewTask is the insert payload for the tasks table. Owner scoping comes from
// the bearer token (RLS), so there is no user filter in the request itself.
type NewTask struct {
	UserID           string   `json:"user_id"`
	Title            string   `json:"title"`
	Priority         string   `json:"priority"`
	Status           string   `json:"status"`
	DueDate          *string  `json:"due_date"`
	ReminderInterval int      `json:"reminder_interval"`
	Tags             []string `json:"tags,omitempty"`
}

// ListActiveTasks returns the user's active tasks ordered by creation time
// descending, matching the ordering the !list command displays.
func (c *Client) ListActiveTasks(ctx context.Context, token string) ([]models.Task, error) {
	path := "/rest/v1/tasks?select=*&status=eq.active&order=created_at.desc"

	data, _, err := c.do(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks response: %w", err)
	}

	return tasks, nil
}

// ListReminderTasks returns the user's active tasks that have reminders
// enabled. Used by the session-scoped candidate strategy.
func (c *Client) ListReminderTasks(ctx context.Context, token string) ([]models.Task, error) {
	path := "/rest/v1/tasks?select=*&status=eq.active&reminder_interval=gt.0"

	data, _, err := c.do(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks response: %w", err)
	}

	return tasks, nil
}

// InsertTask creates a task on behalf of the signed-in user.
func (c *Client) InsertTask(ctx context.Context, token string, task NewTask) (*models.Task, error) {
	headers := map[string]string{"Prefer": "return=representation"}

	data, _, err := c.do(ctx, http.MethodPost, "/rest/v1/tasks", token, task, headers)
	if err != nil {
		return nil, err
	}

	// PostgREST returns the representation as a one-element array.
	var created []models.Task
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to parse insert response: %w", err)
	}
	if len(created) == 0 {
		return nil, &APIError{Message: "insert returned no rows"}
	}

	return &created[0], nil
}

// UpdateTaskStatus sets the status column of one task.
func (c *Client) UpdateTaskStatus(ctx context.Context, token, taskID, status string) error {
	path := "/rest/v1/tasks?id=eq." + url.QueryEscape(taskID)
	payload := map[string]string{"status": status}
	headers := map[string]string{"Prefer": "return=minimal"}

	_, _, err := c.do(ctx, http.MethodPatch, path, token, payload, headers)
	return err
}

// DeleteTask removes one task. The web UI uses this path; the bot keeps it for
// parity with the tasks API surface.
func (c *Client) DeleteTask(ctx context.Context, token, taskID string) error {
	path := "/rest/v1/tasks?id=eq." + url.QueryEscape(taskID)
	headers := map[string]string{"Prefer": "return=minimal"}

	_, _, err := c.do(ctx, http.MethodDelete, path, token, nil, headers)
	return err
}
