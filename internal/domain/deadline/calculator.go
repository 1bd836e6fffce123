// Package deadline implements the procedural-deadline calculator: it turns a
// trigger event into an immutable ComputedDeadline with a full audit trail,
// pinning the rule-set version so the result stays reproducible after the
// rules change.
package deadline

import (
	"fmt"
	"time"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// SuspensionSource yields the merged suspension intervals intersecting a
// window.  *suspension.Registry satisfies it.
type SuspensionSource interface {
	Active(scope calendar.Scope, from, to common.Date) []suspension.Interval
}

// ConfidenceScorer is the injected seam for assisted counting mode: an
// external collaborator scores how confident it is in the computed date.
// The score is recorded without ever altering the date, so the calculator
// stays deterministic when the scorer is absent.
type ConfidenceScorer func(event TriggerEvent, due common.Date) (float64, error)

// Calculator computes deadlines.  It is a pure synchronous computation over
// read-only rule snapshots, safe to call concurrently for independent events.
type Calculator struct {
	rules       rules.Repository
	suspensions SuspensionSource
	settings    settings.Store
	scorer      ConfidenceScorer
	log         logging.Logger
	now         func() time.Time
}

// NewCalculator wires the calculator's collaborators.  scorer may be nil;
// assisted mode then records that no score was available.
func NewCalculator(repo rules.Repository, susp SuspensionSource, store settings.Store, scorer ConfidenceScorer, log logging.Logger) *Calculator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Calculator{
		rules:       repo,
		suspensions: susp,
		settings:    store,
		scorer:      scorer,
		log:         log.Named("calculator"),
		now:         time.Now,
	}
}

// WithClock overrides the computation timestamp source, for tests.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// Compute runs the full pipeline: resolve rule, apply worst-case party
// multiplier, expand through the calendar, toll suspensions, then stamp the
// counting-mode policy.  Legally ambiguous inputs degrade to a best-effort
// result with an audit note; structurally invalid inputs are rejected.
func (c *Calculator) Compute(event TriggerEvent) (ComputedDeadline, error) {
	if err := event.Validate(); err != nil {
		return ComputedDeadline{}, err
	}

	cfg, err := c.settings.Get()
	if err != nil {
		return ComputedDeadline{}, errors.Wrap(err, errors.ErrCodeInternal, "loading configuration")
	}

	version := event.RuleVersionOverride
	if version == 0 {
		version = int(cfg.RuleSetVersion)
	}
	rs, err := c.rules.RuleSet(version)
	if err != nil {
		return ComputedDeadline{}, err
	}

	d := ComputedDeadline{
		ID:           common.NewID(),
		Event:        event,
		RuleVersion:  rs.Version,
		CountingMode: cfg.CountingMode,
		ComputedAt:   common.Timestamp(c.now().UTC()),
	}

	// Step 1: duration and unit from the pinned rule set.
	defaultType := cfg.DefaultProcessTypeID
	if defaultType == "" {
		defaultType = rs.DefaultProcessTypeID
	}
	res, err := rs.Resolve(event.ProcessTypeID, event.EventKind, defaultType)
	if err != nil {
		return ComputedDeadline{}, err
	}
	d.BaseDays = res.Days
	d.Unit = res.Unit
	d.audit(AuditRuleResolved, "%s/%s resolves to %d %s under rule version %d",
		res.ProcessTypeID, res.EventKind, res.Days, res.Unit, rs.Version)
	if res.Fallback {
		d.BestEffort = true
		d.audit(AuditFallbackProcessType, "process type %q unknown, fell back to default %q",
			event.ProcessTypeID, res.ProcessTypeID)
	}

	// Unknown scopes degrade to the national calendar instead of guessing.
	cal := calendar.NewService(rs.HolidaySet())
	d.EffectiveScope = event.Scope
	if _, err := cal.ResolveScope(event.Scope); err != nil {
		if !errors.IsCode(err, errors.ErrCodeUnknownScope) {
			return ComputedDeadline{}, err
		}
		d.EffectiveScope = calendar.ScopeNational
		d.BestEffort = true
		d.audit(AuditScopeFallback, "scope %q unknown, using national calendar", event.Scope)
	}

	// Step 2+3: worst-case multiplier, rounded up before expansion.
	d.MultiplierHundredths = rs.MaxMultiplier(event.PartyRoles)
	d.MultipliedDays = rules.ApplyMultiplier(d.BaseDays, d.MultiplierHundredths)
	if d.MultiplierHundredths != rules.IdentityMultiplier {
		d.audit(AuditMultiplierApplied, "multiplier %d/100 extends %d to %d %s",
			d.MultiplierHundredths, d.BaseDays, d.MultipliedDays, d.Unit)
	}

	// Step 4: calendar expansion.
	var (
		due common.Date
		adj []calendar.Adjustment
	)
	switch d.Unit {
	case calendar.UnitBusinessDays:
		due, adj, err = cal.AddBusinessDays(event.BaseDate, d.MultipliedDays, d.EffectiveScope)
	case calendar.UnitCalendarDays:
		due, adj, err = cal.AddCalendarDays(event.BaseDate, d.MultipliedDays, d.EffectiveScope)
	default:
		return ComputedDeadline{}, errors.Validation("unknown counting unit %q", d.Unit)
	}
	if err != nil {
		return ComputedDeadline{}, err
	}
	d.recordAdjustments(adj)

	// Step 5: suspensions toll the count.  Each tolled day pushes the due
	// date forward, which can expose further suspensions, so iterate until
	// the window is quiet, then land on a business day.
	due, err = c.extendForSuspensions(&d, cal, event.BaseDate, due)
	if err != nil {
		return ComputedDeadline{}, err
	}
	d.DueDate = due

	// Step 6: counting-mode policy.
	c.applyCountingMode(&d)

	c.log.Debug("deadline computed",
		logging.String("deadline_id", string(d.ID)),
		logging.String("event_kind", event.EventKind),
		logging.Int("rule_version", d.RuleVersion),
		logging.String("due_date", d.DueDate.String()),
		logging.Bool("best_effort", d.BestEffort),
	)
	return d, nil
}

func (c *Calculator) extendForSuspensions(d *ComputedDeadline, cal *calendar.Service, base, due common.Date) (common.Date, error) {
	if c.suspensions == nil {
		return due, nil
	}
	// The count begins the day after the base date, so suspensions on the
	// base date itself never toll.
	from := base.AddDays(1)
	covered := 0
	for i := 0; i < 64; i++ { // bounded; overlapping decrees converge fast
		intervals := c.suspensions.Active(d.EffectiveScope, from, due)
		total := suspension.TotalDays(intervals)
		gain := total - covered
		if gain <= 0 {
			break
		}
		due = due.AddDays(gain)
		covered = total
		d.audit(AuditSuspensionExtension, "suspensions toll %d day(s), due date shifted to %s", gain, due)
	}
	if covered > 0 {
		rolled, adj, err := cal.RollForward(due, d.EffectiveScope)
		if err != nil {
			return due, err
		}
		d.recordAdjustments(adj)
		due = rolled
	}
	return due, nil
}

func (c *Calculator) applyCountingMode(d *ComputedDeadline) {
	switch d.CountingMode {
	case settings.CountingAutomatic:
		d.Authoritative = true
		d.audit(AuditCountingMode, "automatic mode: result is authoritative")
	case settings.CountingAssisted:
		d.RequiresConfirmation = true
		d.audit(AuditCountingMode, "assisted mode: suggestion pending confirmation")
		if c.scorer == nil {
			d.audit(AuditConfidenceFailed, "no confidence scorer configured")
			break
		}
		score, err := c.scorer(d.Event, d.DueDate)
		if err != nil {
			d.audit(AuditConfidenceFailed, "confidence scorer failed: %v", err)
			break
		}
		d.Confidence = &score
		d.audit(AuditConfidenceScored, "confidence %.2f recorded", score)
	default: // manual
		d.RequiresConfirmation = true
		d.audit(AuditCountingMode, "manual mode: suggestion pending confirmation")
	}
}

// Recompute runs prev's trigger event against the given rule version (zero
// selects the active one) and links the new record to the old via
// SupersedesID.  prev is never mutated.
func (c *Calculator) Recompute(prev ComputedDeadline, version int) (ComputedDeadline, error) {
	event := prev.Event
	event.RuleVersionOverride = version
	next, err := c.Compute(event)
	if err != nil {
		return ComputedDeadline{}, err
	}
	next.SupersedesID = prev.ID
	return next, nil
}

// CheckStale returns an ErrCodeStaleRuleVersion advisory when d's pinned rule
// version no longer matches the active one.  Nil means d is current.
func (c *Calculator) CheckStale(d ComputedDeadline) error {
	active := c.rules.ActiveVersion()
	if active != 0 && d.RuleVersion != active {
		return errors.Newf(errors.ErrCodeStaleRuleVersion,
			"deadline %s pins rule version %d but version %d is active", d.ID, d.RuleVersion, active)
	}
	return nil
}

func (d *ComputedDeadline) audit(kind AuditKind, format string, args ...interface{}) {
	d.Audit = append(d.Audit, AuditEntry{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

func (d *ComputedDeadline) recordAdjustments(adjustments []calendar.Adjustment) {
	for _, a := range adjustments {
		switch a.Kind {
		case calendar.AdjustHolidaySkip:
			d.Audit = append(d.Audit, AuditEntry{
				Kind:   AuditHolidaySkipped,
				Detail: fmt.Sprintf("%s (%s) skipped", a.Holiday, a.Scope),
				Date:   a.Date,
			})
		case calendar.AdjustRollover:
			d.Audit = append(d.Audit, AuditEntry{
				Kind:   AuditRollover,
				Detail: fmt.Sprintf("rolled forward to next business day %s", a.Date),
				Date:   a.Date,
			})
		}
	}
}
