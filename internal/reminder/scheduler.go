package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/ruzziq8-cell/buzzlab/internal/services"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

// Engine runs the fixed-period reminder loop.
type Engine struct {
	source    CandidateSource
	deliverer *Deliverer
	transport transport.Client
	interval  time.Duration
	metrics   *services.Metrics

	scheduler  gocron.Scheduler
	instanceID string

	// tickMu serializes ticks: an overlapping scheduled tick (or a !trigger
	// racing the timer) waits instead of interleaving.
	tickMu sync.Mutex

	mu         sync.Mutex
	lastTick   time.Time
	lastCounts TickCounts
}

// TickCounts summarizes one completed tick for /status. Skipped counts due
// tasks whose recipient was not deliverable (unregistered number); they were
// neither sent nor marked.
type TickCounts struct {
	Candidates int `json:"candidates"`
	Due        int `json:"due"`
	Delivered  int `json:"delivered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Status is the engine's operational snapshot.
type Status struct {
	InstanceID string     `json:"instance_id"`
	Strategy   string     `json:"strategy"`
	Interval   string     `json:"interval"`
	LastTick   *time.Time `json:"last_tick,omitempty"`
	LastCounts TickCounts `json:"last_counts"`
}

// NewEngine creates the reminder engine. interval defaults to 5 seconds,
// which is also what makes the 5-second demo sentinel observable.
func NewEngine(source CandidateSource, deliverer *Deliverer, tc transport.Client, interval time.Duration, metrics *services.Metrics) (*Engine, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Engine{
		source:     source,
		deliverer:  deliverer,
		transport:  tc,
		interval:   interval,
		metrics:    metrics,
		scheduler:  scheduler,
		instanceID: uuid.New().String(),
	}, nil
}

// Start registers the polling job and starts the scheduler.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.scheduler.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(func() { e.RunNow(ctx) }),
		gocron.WithName("reminder-tick"),
		// A slow tick must not stack: skip scheduling overlap, RunNow's
		// mutex covers the manual-trigger race.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register reminder job: %w", err)
	}

	e.scheduler.Start()
	log.WithField("interval", e.interval.String()).
		WithField("strategy", e.source.Name()).
		Info("reminder engine started")
	return nil
}

// Stop shuts the scheduler down, waiting for a running tick.
func (e *Engine) Stop() error {
	log.Info("stopping reminder engine")
	return e.scheduler.Shutdown()
}

// RunNow executes one tick synchronously. Used by the periodic job, the
// !trigger command and the ops endpoint.
func (e *Engine) RunNow(ctx context.Context) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.tick(ctx)
}

// tick is one pass of the state machine: guard, fetch, evaluate, deliver.
func (e *Engine) tick(ctx context.Context) {
	// Not an error: the gateway simply has not paired yet.
	if !e.transport.Ready(ctx) {
		e.metrics.RecordTickSkipped()
		log.Debug("transport not ready, skipping tick")
		return
	}

	started := time.Now()

	candidates, err := e.source.Fetch(ctx)
	if err != nil {
		// Aborts only this tick. The next one retries unconditionally.
		log.WithError(err).Error("candidate fetch failed, aborting tick")
		e.metrics.RecordTickFailure()
		return
	}

	now := time.Now()
	counts := TickCounts{Candidates: len(candidates)}

	for _, task := range candidates {
		if !task.Due(now) {
			continue
		}
		counts.Due++

		// Failures are isolated per task: one broken number or one failed
		// send never blocks the rest of the tick.
		delivered, err := e.deliverer.Deliver(ctx, task, now)
		switch {
		case err != nil:
			counts.Failed++
			log.WithError(err).WithField("task", task.ID).Error("reminder delivery failed")
		case delivered:
			counts.Delivered++
		default:
			counts.Skipped++
		}
	}

	if counts.Due > 0 {
		log.WithField("due", counts.Due).
			WithField("delivered", counts.Delivered).
			WithField("skipped", counts.Skipped).
			WithField("failed", counts.Failed).
			Info("tick complete")
	}

	e.metrics.RecordTick(time.Since(started).Seconds())

	e.mu.Lock()
	e.lastTick = time.Now()
	e.lastCounts = counts
	e.mu.Unlock()
}

// Status returns the engine's operational snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := Status{
		InstanceID: e.instanceID,
		Strategy:   e.source.Name(),
		Interval:   e.interval.String(),
		LastCounts: e.lastCounts,
	}
	if !e.lastTick.IsZero() {
		t := e.lastTick
		status.LastTick = &t
	}
	return status
}
