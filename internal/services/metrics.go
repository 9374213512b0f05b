package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the bot
type Metrics struct {
	// Command metrics
	CommandsHandled *prometheus.CounterVec
	CommandErrors   *prometheus.CounterVec
	IgnoredMessages prometheus.Counter

	// Reminder engine metrics
	ReminderTicks    prometheus.Counter
	TickFailures     prometheus.Counter
	TickDuration     prometheus.Histogram
	RemindersSent    prometheus.Counter
	DeliveryFailures *prometheus.CounterVec
	SkippedNotReady  prometheus.Counter
}

var globalMetrics *Metrics

// sessionCounter lets the gauge read the live session count without importing
// the session package here.
type sessionCounter interface {
	Count() int
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics(sessions sessionCounter) *Metrics {
	metrics := &Metrics{
		CommandsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "buzzlab_commands_total",
			Help: "Total number of chat commands handled by command name",
		}, []string{"command"}),

		CommandErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "buzzlab_command_errors_total",
			Help: "Total number of command-level errors by type",
		}, []string{"error_type"}), // not_logged_in, invalid_format, backend, not_found

		IgnoredMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buzzlab_ignored_messages_total",
			Help: "Messages dropped without a reply (no prefix or broadcast)",
		}),

		ReminderTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buzzlab_reminder_ticks_total",
			Help: "Total number of reminder scheduler ticks executed",
		}),

		TickFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buzzlab_reminder_tick_failures_total",
			Help: "Ticks aborted because the candidate fetch failed",
		}),

		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "buzzlab_reminder_tick_duration_seconds",
			Help:    "Reminder tick duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buzzlab_reminders_sent_total",
			Help: "Reminders successfully delivered to the transport",
		}),

		DeliveryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "buzzlab_reminder_delivery_failures_total",
			Help: "Reminder deliveries that failed by reason",
		}, []string{"reason"}), // send, unregistered, registration_check, mark

		SkippedNotReady: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buzzlab_reminder_ticks_skipped_total",
			Help: "Ticks skipped because the transport was not ready",
		}),
	}

	if sessions != nil {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "buzzlab_sessions_active",
				Help: "Current number of live chat sessions",
			},
			func() float64 { return float64(sessions.Count()) },
		))
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordCommand records one handled command
func (m *Metrics) RecordCommand(name string) {
	if m == nil {
		return
	}
	m.CommandsHandled.WithLabelValues(name).Inc()
}

// RecordCommandError records a command-level error by taxonomy type
func (m *Metrics) RecordCommandError(errorType string) {
	if m == nil {
		return
	}
	m.CommandErrors.WithLabelValues(errorType).Inc()
}

// RecordIgnored records a message dropped without a reply
func (m *Metrics) RecordIgnored() {
	if m == nil {
		return
	}
	m.IgnoredMessages.Inc()
}

// RecordTick records a completed scheduler tick
func (m *Metrics) RecordTick(seconds float64) {
	if m == nil {
		return
	}
	m.ReminderTicks.Inc()
	m.TickDuration.Observe(seconds)
}

// RecordTickFailure records a tick aborted by a failed candidate fetch
func (m *Metrics) RecordTickFailure() {
	if m == nil {
		return
	}
	m.TickFailures.Inc()
}

// RecordTickSkipped records a tick skipped while the transport was not ready
func (m *Metrics) RecordTickSkipped() {
	if m == nil {
		return
	}
	m.SkippedNotReady.Inc()
}

// RecordReminderSent records a successful reminder delivery
func (m *Metrics) RecordReminderSent() {
	if m == nil {
		return
	}
	m.RemindersSent.Inc()
}

// RecordDeliveryFailure records a failed reminder delivery by reason
func (m *Metrics) RecordDeliveryFailure(reason string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(reason).Inc()
}
