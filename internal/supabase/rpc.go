package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ruzziq8-cell/buzzlab/internal/models"
)

// GetDueReminders calls the privileged get_due_reminders RPC, which returns
// reminder-enabled tasks across all users annotated with each owner's
// WhatsApp number. Due-ness is still evaluated client-side per tick.
func (c *Client) GetDueReminders(ctx context.Context) ([]models.Task, error) {
	data, _, err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/get_due_reminders", "", map[string]any{}, nil)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse get_due_reminders response: %w", err)
	}

	return tasks, nil
}

// UpdateLastReminded records a delivered reminder. Called strictly after a
// successful send; a failure here is logged by the caller and the task simply
// re-fires on a later tick.
func (c *Client) UpdateLastReminded(ctx context.Context, taskID string, at time.Time) error {
	payload := map[string]any{
		"task_id":  taskID,
		"new_time": at.UTC().Format(time.RFC3339),
	}

	_, _, err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/update_last_reminded", "", payload, nil)
	return err
}

// BotTaskResult is the create_task_from_bot RPC response.
type BotTaskResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateTaskFromBot asks the backend to resolve a phone number to a user and
// insert a task for them. Used by !add when the sender has no chat session;
// the backend answers success=false with "User not found" when the number is
// not attached to any profile.
func (c *Client) CreateTaskFromBot(ctx context.Context, phone, title string, dueDate *string, interval int) (*BotTaskResult, error) {
	payload := map[string]any{
		"p_whatsapp_number": phone,
		"p_title":           title,
		"p_due_date":        dueDate,
		"p_interval":        interval,
	}

	data, _, err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/create_task_from_bot", "", payload, nil)
	if err != nil {
		return nil, err
	}

	var result BotTaskResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse create_task_from_bot response: %w", err)
	}

	return &result, nil
}
