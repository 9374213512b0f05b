package bot

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ruzziq8-cell/buzzlab/internal/models"
	"github.com/ruzziq8-cell/buzzlab/internal/supabase"
)

// fakeBackend is an in-memory Backend for interpreter tests. Error fields, when
// set, are returned by the corresponding call. Safe for concurrent use, like
// the real client.
type fakeBackend struct {
	mu    sync.Mutex
	users map[string]string // email -> password
	names map[string]string // email -> display name

	tasks       []models.Task
	nextID      int
	signInEmail string // records the email SignIn last received

	signInErr error
	listErr   error
	insertErr error
	updateErr error

	botResult *supabase.BotTaskResult
	botErr    error
	botCalls  []string // phone numbers passed to CreateTaskFromBot
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:     map[string]string{"alice@todolist.app": "secret"},
		names:     map[string]string{"alice@todolist.app": "Alice"},
		botResult: &supabase.BotTaskResult{Success: false, Message: "User not found"},
		nextID:    1,
	}
}

func (f *fakeBackend) SignIn(ctx context.Context, email, password string) (*supabase.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInEmail = email
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if f.users[email] != password {
		return nil, &supabase.APIError{Status: 400, Message: "Invalid login credentials"}
	}
	result := &supabase.SignInResult{AccessToken: "token-" + email, ExpiresIn: 3600}
	result.User.ID = "user-" + email
	result.User.Email = email
	result.User.UserMetadata.Name = f.names[email]
	return result, nil
}

func (f *fakeBackend) ListActiveTasks(ctx context.Context, token string) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var active []models.Task
	for _, t := range f.tasks {
		if t.Status == models.TaskStatusActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (f *fakeBackend) InsertTask(ctx context.Context, token string, task supabase.NewTask) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	created := models.Task{
		ID:               strconv.Itoa(f.nextID),
		UserID:           task.UserID,
		Title:            task.Title,
		Status:           task.Status,
		Priority:         task.Priority,
		DueDate:          task.DueDate,
		ReminderInterval: task.ReminderInterval,
		CreatedAt:        time.Now(),
	}
	f.nextID++
	f.tasks = append(f.tasks, created)
	return &created, nil
}

func (f *fakeBackend) UpdateTaskStatus(ctx context.Context, token, taskID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for n := range f.tasks {
		if f.tasks[n].ID == taskID {
			f.tasks[n].Status = status
			return nil
		}
	}
	return &supabase.APIError{Status: 404, Message: "task not found"}
}

func (f *fakeBackend) CreateTaskFromBot(ctx context.Context, phone, title string, dueDate *string, interval int) (*supabase.BotTaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.botCalls = append(f.botCalls, phone)
	if f.botErr != nil {
		return nil, f.botErr
	}
	return f.botResult, nil
}
