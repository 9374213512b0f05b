// Package bot parses inbound chat text into commands and executes them against
// the task backend using the sender's session.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ruzziq8-cell/buzzlab/internal/logging"
	"github.com/ruzziq8-cell/buzzlab/internal/models"
	"github.com/ruzziq8-cell/buzzlab/internal/services"
	"github.com/ruzziq8-cell/buzzlab/internal/session"
	"github.com/ruzziq8-cell/buzzlab/internal/supabase"
	"github.com/ruzziq8-cell/buzzlab/internal/templates"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

// Prefix marks a message as a command. Anything else is ignored without reply.
const Prefix = "!"

var log = logging.Component("bot")

// Backend is the slice of the Supabase client the interpreter needs. Narrowed
// to an interface so tests can run against a fake.
type Backend interface {
	SignIn(ctx context.Context, email, password string) (*supabase.SignInResult, error)
	ListActiveTasks(ctx context.Context, token string) ([]models.Task, error)
	InsertTask(ctx context.Context, token string, task supabase.NewTask) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, token, taskID, status string) error
	CreateTaskFromBot(ctx context.Context, phone, title string, dueDate *string, interval int) (*supabase.BotTaskResult, error)
}

// TriggerFunc forces one synchronous reminder tick (the !trigger diagnostic).
type TriggerFunc func(ctx context.Context)

// Interpreter dispatches chat commands. One instance serves all senders; all
// per-sender state lives in the session store.
type Interpreter struct {
	backend     Backend
	sessions    *session.Store
	tmpl        *templates.Pack
	metrics     *services.Metrics
	trigger     TriggerFunc
	loginDomain string
}

// New creates a command interpreter. trigger may be nil, which turns !trigger
// into a plain acknowledgement.
func New(backend Backend, sessions *session.Store, tmpl *templates.Pack, metrics *services.Metrics, loginDomain string, trigger TriggerFunc) *Interpreter {
	return &Interpreter{
		backend:     backend,
		sessions:    sessions,
		tmpl:        tmpl,
		metrics:     metrics,
		trigger:     trigger,
		loginDomain: loginDomain,
	}
}

// HandleMessage interprets one inbound message. The second return value is
// false when the message must be ignored (no reply at all); otherwise the
// reply text is returned. Every recognized command yields exactly one reply.
func (i *Interpreter) HandleMessage(ctx context.Context, msg transport.Message) (string, bool) {
	text := strings.TrimSpace(msg.Body)

	if msg.FromBroadcast || msg.From == transport.BroadcastJID || !strings.HasPrefix(text, Prefix) {
		i.metrics.RecordIgnored()
		return "", false
	}

	sender := logging.WithSender(log, msg.From)

	switch {
	case strings.HasPrefix(text, "!trigger"):
		i.metrics.RecordCommand("trigger")
		if i.trigger != nil {
			i.trigger(ctx)
		}
		return i.tmpl.Render("trigger_done", nil), true

	case strings.HasPrefix(text, "!help"):
		i.metrics.RecordCommand("help")
		return i.tmpl.Render("help", nil), true

	case strings.HasPrefix(text, "!add"):
		i.metrics.RecordCommand("add")
		return i.handleAdd(ctx, sender, msg.From, strings.TrimSpace(text[len("!add"):])), true

	case strings.HasPrefix(text, "!login"):
		i.metrics.RecordCommand("login")
		return i.handleLogin(ctx, sender, msg.From, text), true

	case strings.HasPrefix(text, "!logout"):
		i.metrics.RecordCommand("logout")
		return i.handleLogout(sender, msg.From), true

	case strings.HasPrefix(text, "!list"):
		i.metrics.RecordCommand("list")
		return i.withSession(msg.From, func(sess *session.Session) string {
			return i.handleList(ctx, sender, msg.From, sess)
		}), true

	case strings.HasPrefix(text, "!done"):
		i.metrics.RecordCommand("done")
		return i.withSession(msg.From, func(sess *session.Session) string {
			return i.handleDone(ctx, sender, msg.From, sess, text)
		}), true
	}

	// Unknown "!" text gets no reply, same as the original bot.
	i.metrics.RecordIgnored()
	return "", false
}

// withSession runs fn with the sender's session, or replies not-logged-in.
func (i *Interpreter) withSession(senderID string, fn func(*session.Session) string) string {
	sess := i.sessions.Get(senderID)
	if sess == nil {
		i.metrics.RecordCommandError(errTypeNotLoggedIn)
		return i.tmpl.Render("not_logged_in", nil)
	}
	return fn(sess)
}

func (i *Interpreter) handleLogin(ctx context.Context, sender *logrus.Entry, senderID, text string) string {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		i.metrics.RecordCommandError(errTypeInvalidFormat)
		return i.tmpl.Render("login_usage", nil)
	}

	email := completeEmail(parts[1], i.loginDomain)
	password := parts[2]

	result, err := i.backend.SignIn(ctx, email, password)
	if err != nil {
		sender.WithError(err).Info("login failed")
		i.metrics.RecordCommandError(errTypeAuth)
		// The backend's own message goes to the user verbatim.
		return i.tmpl.Render("login_failed", map[string]string{"Error": err.Error()})
	}

	i.sessions.Set(senderID, &session.Session{
		SenderID:    senderID,
		AccessToken: result.AccessToken,
		User:        result.User,
	})

	sender.WithField("user", result.User.ID).Info("login successful")
	return i.tmpl.Render("login_success", map[string]string{"Name": result.User.DisplayName()})
}

func (i *Interpreter) handleLogout(sender *logrus.Entry, senderID string) string {
	if i.sessions.Delete(senderID) {
		sender.Info("logged out")
		return i.tmpl.Render("logout_success", nil)
	}
	return i.tmpl.Render("logout_not_logged_in", nil)
}

func (i *Interpreter) handleList(ctx context.Context, sender *logrus.Entry, senderID string, sess *session.Session) string {
	tasks, err := i.backend.ListActiveTasks(ctx, sess.AccessToken)
	if err != nil {
		sender.WithError(err).Error("list failed")
		i.metrics.RecordCommandError(errTypeBackend)
		return i.tmpl.Render("list_failed", nil)
	}

	// Replace the positional snapshot wholesale, empty result included, so a
	// stale !done can never resolve against a list the user no longer sees.
	sess.LastTasks = tasks
	i.sessions.Set(senderID, sess)

	if len(tasks) == 0 {
		return i.tmpl.Render("list_empty", nil)
	}

	var b strings.Builder
	b.WriteString(i.tmpl.Render("list_header", nil))
	b.WriteString("\n\n")
	for n, task := range tasks {
		fmt.Fprintf(&b, "%d. %s [%s]", n+1, task.Title, task.Priority)
		if task.DueDate != nil && *task.DueDate != "" {
			fmt.Fprintf(&b, " [📅 %s]", *task.DueDate)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (i *Interpreter) handleDone(ctx context.Context, sender *logrus.Entry, senderID string, sess *session.Session, text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		i.metrics.RecordCommandError(errTypeInvalidFormat)
		return i.tmpl.Render("done_invalid_index", nil)
	}

	idx, err := parseIndex(parts[1], len(sess.LastTasks))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			i.metrics.RecordCommandError(errTypeNotFound)
		} else {
			i.metrics.RecordCommandError(errTypeInvalidFormat)
		}
		return i.tmpl.Render("done_invalid_index", nil)
	}

	task := sess.LastTasks[idx]
	if err := i.backend.UpdateTaskStatus(ctx, sess.AccessToken, task.ID, models.TaskStatusCompleted); err != nil {
		sender.WithError(err).WithField("task", task.ID).Error("done failed")
		i.metrics.RecordCommandError(errTypeBackend)
		// Cached list stays untouched so the user can retry the same number.
		return i.tmpl.Render("done_failed", nil)
	}

	// Remove the entry so repeated !done calls shift correctly.
	sess.LastTasks = append(sess.LastTasks[:idx], sess.LastTasks[idx+1:]...)
	i.sessions.Set(senderID, sess)

	sender.WithField("task", task.ID).Info("task completed")
	return i.tmpl.Render("done_success", map[string]string{"Title": task.Title})
}

func (i *Interpreter) handleAdd(ctx context.Context, sender *logrus.Entry, senderID, raw string) string {
	args, err := parseAdd(raw)
	if err != nil {
		i.metrics.RecordCommandError(errTypeInvalidFormat)
		if errors.Is(err, errBadDate) {
			return i.tmpl.Render("add_bad_date", nil)
		}
		return i.tmpl.Render("add_usage", nil)
	}

	// First choice: the backend resolves the sender's number to a user, no
	// session needed.
	phone := transport.PhoneFromJID(senderID)
	result, rpcErr := i.backend.CreateTaskFromBot(ctx, phone, args.Title, args.DueDate, args.Interval)

	if rpcErr == nil && result.Success {
		data := map[string]any{"Title": args.Title, "Interval": args.Interval, "DueDate": ""}
		if args.DueDate != nil {
			data["DueDate"] = *args.DueDate
		}
		return i.tmpl.Render("add_success", data)
	}

	// Number unknown to the backend: fall back to a manual login session.
	if rpcErr == nil && result.Message == "User not found" {
		sess := i.sessions.Get(senderID)
		if sess == nil {
			i.metrics.RecordCommandError(errTypeNotLoggedIn)
			return i.tmpl.Render("add_not_registered", nil)
		}

		_, err := i.backend.InsertTask(ctx, sess.AccessToken, supabase.NewTask{
			UserID:           sess.User.ID,
			Title:            args.Title,
			Priority:         models.PriorityMedium,
			Status:           models.TaskStatusActive,
			DueDate:          args.DueDate,
			ReminderInterval: args.Interval,
		})
		if err != nil {
			sender.WithError(err).Error("add via session failed")
			i.metrics.RecordCommandError(errTypeBackend)
			return i.tmpl.Render("add_session_failed", map[string]string{"Error": err.Error()})
		}
		return i.tmpl.Render("add_session_success", map[string]string{"Title": args.Title})
	}

	if rpcErr != nil {
		sender.WithError(rpcErr).Error("create_task_from_bot failed")
	} else {
		sender.WithField("message", result.Message).Error("create_task_from_bot rejected")
	}
	i.metrics.RecordCommandError(errTypeBackend)
	return i.tmpl.Render("add_failed", nil)
}
