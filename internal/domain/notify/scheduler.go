// Package notify implements the lead-time alert scheduler.  It polls the set
// of computed deadlines, fires an alert signal once a deadline enters its
// notification window, and tracks each deadline through a small state
// machine: scheduled → alerted → acknowledged, with either of the first two
// expiring when the due date passes unacknowledged.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// AlertState is a deadline's position in the notification lifecycle.
type AlertState string

const (
	StateScheduled    AlertState = "scheduled"
	StateAlerted      AlertState = "alerted"
	StateAcknowledged AlertState = "acknowledged"
	StateExpired      AlertState = "expired"
)

// AlertSignal is the outbound notification handed to the dispatch
// collaborator when a deadline enters its lead-time window.
type AlertSignal struct {
	DeadlineID   common.ID   `json:"deadline_id"`
	DueDate      common.Date `json:"due_date"`
	LeadTimeDays int         `json:"lead_time_days"`
}

// DeadlineSource yields the deadlines to evaluate.  deadline.Store satisfies
// it.
type DeadlineSource interface {
	List() ([]deadline.ComputedDeadline, error)
}

// AlertSink receives fired alerts.  A sink error leaves the deadline
// scheduled so the next evaluation retries.
type AlertSink interface {
	Publish(ctx context.Context, signal AlertSignal) error
}

// SettingsSource supplies the notification lead time.  settings.Store
// satisfies it.
type SettingsSource interface {
	Get() (settings.ConfigurationSet, error)
}

// Scheduler is the periodic evaluator.  Evaluation is idempotent: an already
// alerted deadline never re-fires, so duplicate runs after a crash cannot
// double-alert.
type Scheduler struct {
	source   DeadlineSource
	sink     AlertSink
	settings SettingsSource
	log      logging.Logger
	today    func() common.Date

	mu           sync.Mutex
	states       map[common.ID]AlertState
	lastLead     int
	degraded     bool
	onTransition func(id common.ID, state AlertState)
}

// NewScheduler wires the scheduler's collaborators.
func NewScheduler(source DeadlineSource, sink AlertSink, cfg SettingsSource, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scheduler{
		source:   source,
		sink:     sink,
		settings: cfg,
		log:      log.Named("scheduler"),
		today:    func() common.Date { return common.DateOf(time.Now()) },
		states:   make(map[common.ID]AlertState),
		lastLead: settings.Defaults().LeadTimeDays,
	}
}

// WithToday overrides the evaluation date source, for tests.
func (s *Scheduler) WithToday(today func() common.Date) *Scheduler {
	s.today = today
	return s
}

// Seed preloads persisted states so a restarted scheduler never re-alerts.
func (s *Scheduler) Seed(states map[common.ID]AlertState) {
	s.mu.Lock()
	for id, st := range states {
		s.states[id] = st
	}
	s.mu.Unlock()
}

// OnTransition registers a hook invoked after every state change, typically
// to persist it.  Must be set before the scheduler starts evaluating.
func (s *Scheduler) OnTransition(hook func(id common.ID, state AlertState)) {
	s.onTransition = hook
}

// State returns the tracked state for a deadline, defaulting to scheduled.
func (s *Scheduler) State(id common.ID) AlertState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[id]; ok {
		return st
	}
	return StateScheduled
}

// Degraded reports whether the last evaluation ran on a stale lead time
// because the configuration store was unreachable.
func (s *Scheduler) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Ack marks an alerted deadline acknowledged.  Acknowledging a deadline that
// was never alerted, or that already expired, is a conflict.
func (s *Scheduler) Ack(id common.ID) error {
	s.mu.Lock()
	switch s.states[id] {
	case StateAlerted:
		s.mu.Unlock()
		s.transition(id, StateAcknowledged)
		return nil
	case StateAcknowledged:
		s.mu.Unlock()
		return nil // acking twice is harmless
	case StateExpired:
		s.mu.Unlock()
		return errors.Conflict(fmt.Sprintf("deadline %s already expired", id))
	default:
		s.mu.Unlock()
		return errors.Conflict(fmt.Sprintf("deadline %s has not been alerted", id))
	}
}

// EvaluateAll runs one polling pass.  Each deadline is evaluated
// independently; a sink failure on one never blocks the others.  The lead
// time is read fresh each pass; when the configuration store is unreachable
// the last-known value applies and the scheduler flags degraded mode instead
// of suppressing alerts.
func (s *Scheduler) EvaluateAll(ctx context.Context) error {
	lead := s.loadLeadTime()

	deadlines, err := s.source.List()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "listing deadlines")
	}

	today := s.today()
	var failures int
	for _, d := range deadlines {
		if err := s.evaluate(ctx, d, today, lead); err != nil {
			failures++
			s.log.Warn("alert delivery failed",
				logging.String("deadline_id", string(d.ID)),
				logging.Err(err),
			)
		}
	}
	if failures > 0 {
		return errors.Newf(errors.ErrCodeAlertDeliveryFailed, "%d alert(s) failed to deliver", failures)
	}
	return nil
}

func (s *Scheduler) loadLeadTime() int {
	cfg, err := s.settings.Get()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if !s.degraded {
			s.log.Warn("configuration unreachable, using last-known lead time",
				logging.Int("lead_time_days", s.lastLead),
				logging.Err(err),
			)
		}
		s.degraded = true
		return s.lastLead
	}
	s.degraded = false
	s.lastLead = cfg.LeadTimeDays
	return s.lastLead
}

func (s *Scheduler) evaluate(ctx context.Context, d deadline.ComputedDeadline, today common.Date, lead int) error {
	s.mu.Lock()
	state, ok := s.states[d.ID]
	if !ok {
		state = StateScheduled
	}
	s.mu.Unlock()

	switch state {
	case StateAcknowledged, StateExpired:
		return nil
	case StateAlerted:
		if today.After(d.DueDate) {
			s.transition(d.ID, StateExpired)
		}
		return nil
	}

	// Scheduled.
	if today.After(d.DueDate) {
		s.transition(d.ID, StateExpired)
		return nil
	}
	if today.Before(d.DueDate.AddDays(-lead)) {
		return nil // window not yet open
	}

	signal := AlertSignal{DeadlineID: d.ID, DueDate: d.DueDate, LeadTimeDays: lead}
	if err := s.sink.Publish(ctx, signal); err != nil {
		// Stay scheduled; the next pass retries.
		return errors.Wrap(err, errors.ErrCodeAlertDeliveryFailed, "publishing alert")
	}
	s.transition(d.ID, StateAlerted)
	s.log.Info("deadline alerted",
		logging.String("deadline_id", string(d.ID)),
		logging.String("due_date", d.DueDate.String()),
		logging.Int("lead_time_days", lead),
	)
	return nil
}

func (s *Scheduler) transition(id common.ID, to AlertState) {
	s.mu.Lock()
	s.states[id] = to
	hook := s.onTransition
	s.mu.Unlock()
	if hook != nil {
		hook(id, to)
	}
}

// Run polls until the context is cancelled.  Duplicate or overlapping runs
// are safe because evaluation is idempotent.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", logging.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.EvaluateAll(ctx); err != nil {
				s.log.Warn("evaluation pass reported failures", logging.Err(err))
			}
		}
	}
}
