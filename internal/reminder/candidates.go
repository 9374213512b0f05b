// Package reminder is the scheduling and delivery engine: a fixed-period
// polling loop that evaluates due reminders and pushes them through the
// transport.
package reminder

import (
	"context"
	"strings"

	"github.com/ruzziq8-cell/buzzlab/internal/config"
	"github.com/ruzziq8-cell/buzzlab/internal/logging"
	"github.com/ruzziq8-cell/buzzlab/internal/models"
	"github.com/ruzziq8-cell/buzzlab/internal/session"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

var log = logging.Component("reminder")

// CandidateSource yields the reminder-eligible tasks a tick should evaluate.
// Due-ness is NOT the source's job; the engine evaluates it per task so both
// strategies behave identically.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Task, error)
}

// RPCBackend is the privileged candidate query.
type RPCBackend interface {
	GetDueReminders(ctx context.Context) ([]models.Task, error)
}

// RPCSource fetches candidates across all users through the privileged
// get_due_reminders RPC. Each row carries the owner's WhatsApp number.
type RPCSource struct {
	backend RPCBackend
}

// NewRPCSource creates the privileged candidate source.
func NewRPCSource(backend RPCBackend) *RPCSource {
	return &RPCSource{backend: backend}
}

func (s *RPCSource) Name() string { return config.StrategyRPC }

func (s *RPCSource) Fetch(ctx context.Context) ([]models.Task, error) {
	return s.backend.GetDueReminders(ctx)
}

// SessionBackend is the per-user candidate query.
type SessionBackend interface {
	ListReminderTasks(ctx context.Context, token string) ([]models.Task, error)
}

// SessionSource fetches candidates per logged-in session using each session's
// own token. Users who never ran !login are invisible to it.
type SessionSource struct {
	store   *session.Store
	backend SessionBackend
}

// NewSessionSource creates the session-scoped candidate source.
func NewSessionSource(store *session.Store, backend SessionBackend) *SessionSource {
	return &SessionSource{store: store, backend: backend}
}

func (s *SessionSource) Name() string { return config.StrategySession }

// Fetch queries every live session. A failing session is logged and skipped;
// the other sessions' tasks still make it into the tick.
func (s *SessionSource) Fetch(ctx context.Context) ([]models.Task, error) {
	var candidates []models.Task

	for _, sess := range s.store.All() {
		tasks, err := s.backend.ListReminderTasks(ctx, sess.AccessToken)
		if err != nil {
			log.WithError(err).WithField("sender", sess.SenderID).Warn("candidate query failed for session")
			continue
		}

		for _, task := range tasks {
			// Per-user rows have no whatsapp_number column; deliver to the
			// chat identity that logged in.
			if task.WhatsAppNumber == "" {
				task.WhatsAppNumber = strings.TrimSuffix(sess.SenderID, transport.Suffix)
			}
			candidates = append(candidates, task)
		}
	}

	return candidates, nil
}
