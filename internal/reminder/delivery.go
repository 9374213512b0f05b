package reminder

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ruzziq8-cell/buzzlab/internal/models"
	"github.com/ruzziq8-cell/buzzlab/internal/services"
	"github.com/ruzziq8-cell/buzzlab/internal/templates"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

// MarkBackend records a delivered reminder on the task.
type MarkBackend interface {
	UpdateLastReminded(ctx context.Context, taskID string, at time.Time) error
}

// Deliverer normalizes recipients and pushes one reminder through the
// transport. Outgoing gateway traffic is rate limited so a backlog of due
// tasks cannot burst-send.
type Deliverer struct {
	transport        transport.Client
	backend          MarkBackend
	tmpl             *templates.Pack
	limiter          *rate.Limiter
	verifyRecipients bool
	metrics          *services.Metrics
}

// NewDeliverer creates a deliverer sending at most ratePerMinute messages.
func NewDeliverer(tc transport.Client, backend MarkBackend, tmpl *templates.Pack, metrics *services.Metrics, ratePerMinute int, verifyRecipients bool) *Deliverer {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &Deliverer{
		transport:        tc,
		backend:          backend,
		tmpl:             tmpl,
		limiter:          rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 5),
		verifyRecipients: verifyRecipients,
		metrics:          metrics,
	}
}

// Deliver sends one reminder. The first return value reports whether a
// message actually went out: an unregistered recipient is skipped without
// error and without a send. The last_reminded_at update happens strictly
// after a successful send, so a failed delivery never suppresses the next
// attempt; a failed update after a successful send is logged and the task
// simply re-fires a full interval later.
func (d *Deliverer) Deliver(ctx context.Context, task models.Task, now time.Time) (bool, error) {
	to := transport.CanonicalJID(task.WhatsAppNumber)
	entry := log.WithField("task", task.ID).WithField("to", to)

	if err := d.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	if d.verifyRecipients {
		registered, err := d.transport.IsRegistered(ctx, to)
		if err != nil {
			// The lookup itself failed; the number may well be registered.
			d.metrics.RecordDeliveryFailure("registration_check")
			return false, fmt.Errorf("registration check failed: %w", err)
		}
		if !registered {
			// Skip silently and leave the task unmarked. Due-ness still
			// holds next tick, but the send limiter bounds the re-checks.
			entry.Info("recipient not registered on transport, skipping")
			d.metrics.RecordDeliveryFailure("unregistered")
			return false, nil
		}
	}

	message := d.tmpl.Render("reminder", map[string]string{
		"Title":    task.Title,
		"Priority": task.Priority,
		"DueDate":  task.DueDateLabel(),
	})

	if err := d.transport.SendMessage(ctx, to, message); err != nil {
		d.metrics.RecordDeliveryFailure("send")
		return false, fmt.Errorf("send failed: %w", err)
	}

	entry.WithField("title", task.Title).Info("reminder delivered")
	d.metrics.RecordReminderSent()

	if err := d.backend.UpdateLastReminded(ctx, task.ID, now); err != nil {
		// Send already happened; only log. Stale last_reminded_at means the
		// task re-fires next tick, which the idempotence contract allows.
		entry.WithError(err).Warn("failed to mark reminder as sent")
		d.metrics.RecordDeliveryFailure("mark")
	}

	return true, nil
}
