package models

import (
	"time"
)

// Task statuses as stored in the Supabase tasks table
const (
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// demoInterval is the effective interval for the reminder_interval=1 sentinel.
// Interval 1 means "every 5 seconds" so reminders can be demoed without waiting a minute.
const demoInterval = 5 * time.Second

// Task represents a row of the Supabase tasks table.
// JSON tags match the column names used by PostgREST and the get_due_reminders RPC.
type Task struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id,omitempty"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	DueDate          *string    `json:"due_date"`           // calendar date, YYYY-MM-DD, no time component
	ReminderInterval int        `json:"reminder_interval"`  // minutes; 0 = off, 1 = 5-second demo sentinel
	LastRemindedAt   *time.Time `json:"last_reminded_at"`
	CreatedAt        time.Time  `json:"created_at"`
	WhatsAppNumber   string     `json:"whatsapp_number,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
}

// ReminderEligible reports whether the task can ever produce a reminder.
func (t *Task) ReminderEligible() bool {
	return t.Status == TaskStatusActive && t.ReminderInterval > 0
}

// EffectiveInterval returns the real wall-clock gap between reminders.
// Interval 1 is the demo sentinel (5 seconds); any other positive value is minutes.
func (t *Task) EffectiveInterval() time.Duration {
	if t.ReminderInterval == 1 {
		return demoInterval
	}
	return time.Duration(t.ReminderInterval) * time.Minute
}

// ReferenceTime returns the timestamp due-ness is measured from:
// the last delivered reminder, or creation time if none was ever sent.
func (t *Task) ReferenceTime() time.Time {
	if t.LastRemindedAt != nil {
		return *t.LastRemindedAt
	}
	return t.CreatedAt
}

// Due reports whether a reminder should fire at the given instant.
// Once due, a task stays due until a successful send moves LastRemindedAt forward.
func (t *Task) Due(now time.Time) bool {
	if !t.ReminderEligible() {
		return false
	}
	return now.Sub(t.ReferenceTime()) >= t.EffectiveInterval()
}

// DueDateLabel returns the due date for display, or a dash placeholder when unset.
func (t *Task) DueDateLabel() string {
	if t.DueDate == nil || *t.DueDate == "" {
		return "-"
	}
	return *t.DueDate
}
