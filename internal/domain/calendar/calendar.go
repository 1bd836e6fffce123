// Package calendar implements business-day arithmetic over scoped holiday
// calendars.  It is the lowest layer of the deadline engine: it knows nothing
// about process types, rule versions, or suspensions — only dates, weekends,
// holidays, and scope resolution.
package calendar

import (
	"fmt"

	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Scope
// ─────────────────────────────────────────────────────────────────────────────

// Scope identifies the territorial reach of a holiday or suspension.  Scopes
// are hierarchical, dash-separated codes: the national scope "BR", a state
// scope "BR-SP", a tribunal scope "BR-SP-TJSP".  A date observed in a broader
// scope is observed in every scope nested under it.
type Scope string

// ScopeNational is the root of every scope chain and the fallback scope the
// calculator applies when a trigger event carries an unknown scope.
const ScopeNational Scope = "BR"

// Chain expands a scope into the ordered list of scopes whose holidays apply
// to it, broadest first.  "BR-SP-TJSP" → ["BR", "BR-SP", "BR-SP-TJSP"].
func (s Scope) Chain() []Scope {
	if s == "" {
		return nil
	}
	var chain []Scope
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			chain = append(chain, s[:i])
		}
	}
	return append(chain, s)
}

// Level reports the nesting depth: 1 for national, 2 for state, 3 for
// tribunal/municipal.
func (s Scope) Level() int {
	return len(s.Chain())
}

// ─────────────────────────────────────────────────────────────────────────────
// Holiday
// ─────────────────────────────────────────────────────────────────────────────

// Holiday is a single non-working date within a scope.  Recurring holidays
// (e.g. Tiradentes, April 21st) match their month and day in every year;
// non-recurring entries (e.g. an election day) match one exact date.
type Holiday struct {
	Date      common.Date `json:"date"`
	Scope     Scope       `json:"scope"`
	Name      string      `json:"name"`
	Recurring bool        `json:"recurring"`
}

// key returns the deduplication key.  Holidays are unique per (date, scope);
// the same date may legitimately appear under multiple scopes.
func (h Holiday) key() string {
	if h.Recurring {
		return fmt.Sprintf("%02d-%02d|%s", h.Date.Month(), h.Date.Day(), h.Scope)
	}
	return h.Date.String() + "|" + string(h.Scope)
}

// ─────────────────────────────────────────────────────────────────────────────
// HolidaySet
// ─────────────────────────────────────────────────────────────────────────────

// HolidaySet is an immutable, deduplicated collection of holidays for a known
// set of scopes.  It is built once per published rule-set version and shared
// read-only between the calendar service and any number of concurrent
// calculations.
type HolidaySet struct {
	known     map[Scope]struct{}
	exact     map[Scope]map[string]Holiday // "2025-01-10" → holiday
	recurring map[Scope]map[string]Holiday // "01-10"      → holiday
}

// NewHolidaySet builds a HolidaySet from the declared scopes and holiday
// entries.  The national scope is always known.  Entries are deduplicated by
// (date, scope); the last entry for a key wins.  A holiday whose scope was
// not declared implicitly registers that scope.
func NewHolidaySet(scopes []Scope, holidays []Holiday) *HolidaySet {
	hs := &HolidaySet{
		known:     make(map[Scope]struct{}),
		exact:     make(map[Scope]map[string]Holiday),
		recurring: make(map[Scope]map[string]Holiday),
	}
	hs.known[ScopeNational] = struct{}{}
	for _, s := range scopes {
		hs.known[s] = struct{}{}
	}
	for _, h := range holidays {
		hs.known[h.Scope] = struct{}{}
		bucket := hs.exact
		key := h.Date.String()
		if h.Recurring {
			bucket = hs.recurring
			key = fmt.Sprintf("%02d-%02d", h.Date.Month(), h.Date.Day())
		}
		if bucket[h.Scope] == nil {
			bucket[h.Scope] = make(map[string]Holiday)
		}
		bucket[h.Scope][key] = h
	}
	return hs
}

// Known reports whether the scope (the exact code, not its chain) was
// declared when the set was built.
func (hs *HolidaySet) Known(scope Scope) bool {
	_, ok := hs.known[scope]
	return ok
}

// Holiday returns the holiday observed on d in exactly the given scope, if
// any.  Recurring entries match on month and day regardless of year.
func (hs *HolidaySet) Holiday(d common.Date, scope Scope) (Holiday, bool) {
	if m := hs.exact[scope]; m != nil {
		if h, ok := m[d.String()]; ok {
			return h, true
		}
	}
	if m := hs.recurring[scope]; m != nil {
		key := fmt.Sprintf("%02d-%02d", d.Month(), d.Day())
		if h, ok := m[key]; ok {
			return h, true
		}
	}
	return Holiday{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Unit is the counting unit of a duration rule.
type Unit string

const (
	// UnitBusinessDays counts only days that are neither weekends nor
	// holidays in the applicable scope chain.
	UnitBusinessDays Unit = "business_days"

	// UnitCalendarDays counts every day.
	UnitCalendarDays Unit = "calendar_days"
)

// Valid reports whether the unit is one of the declared constants.
func (u Unit) Valid() bool {
	return u == UnitBusinessDays || u == UnitCalendarDays
}

// AdjustmentKind labels a single calendar adjustment applied during date
// arithmetic.  Adjustments feed the calculator's audit trail.
type AdjustmentKind string

const (
	// AdjustHolidaySkip records a holiday excluded from a business-day count.
	AdjustHolidaySkip AdjustmentKind = "holiday_skip"

	// AdjustRollover records a result date moved forward to the next
	// business day because it landed on a weekend or holiday.
	AdjustRollover AdjustmentKind = "rollover"
)

// Adjustment is one calendar-level correction applied while computing a date.
type Adjustment struct {
	Kind    AdjustmentKind `json:"kind"`
	Date    common.Date    `json:"date"`
	Holiday string         `json:"holiday,omitempty"`
	Scope   Scope          `json:"scope,omitempty"`
}

// Service performs date arithmetic against one immutable HolidaySet.  A
// Service is cheap to construct; the calculator builds one per computation
// from the rule-set version it pinned.
type Service struct {
	holidays *HolidaySet
}

// NewService constructs a Service over the given holiday set.
func NewService(holidays *HolidaySet) *Service {
	return &Service{holidays: holidays}
}

// ResolveScope validates that the requested scope is known and returns its
// chain.  An unknown scope is a recoverable error: the caller must retry
// with a fallback scope (conventionally ScopeNational) rather than this
// service silently guessing one.
func (s *Service) ResolveScope(scope Scope) ([]Scope, error) {
	if scope == "" {
		return nil, errors.New(errors.ErrCodeUnknownScope, "empty scope")
	}
	if !s.holidays.Known(scope) {
		return nil, errors.Newf(errors.ErrCodeUnknownScope, "scope %s is not registered", scope).
			WithDetail("supply a fallback scope, e.g. " + string(ScopeNational))
	}
	return scope.Chain(), nil
}

// holidayOn returns the first holiday observed on d anywhere in the chain.
func (s *Service) holidayOn(d common.Date, chain []Scope) (Holiday, bool) {
	for _, sc := range chain {
		if h, ok := s.holidays.Holiday(d, sc); ok {
			return h, true
		}
	}
	return Holiday{}, false
}

// IsBusinessDay reports whether d is a working day for the given scope.
// Unknown scopes return an ErrCodeUnknownScope error.
func (s *Service) IsBusinessDay(d common.Date, scope Scope) (bool, error) {
	chain, err := s.ResolveScope(scope)
	if err != nil {
		return false, err
	}
	if d.IsWeekend() {
		return false, nil
	}
	_, isHoliday := s.holidayOn(d, chain)
	return !isHoliday, nil
}

// AddBusinessDays advances count business days from start, excluding the
// start date itself: the first counted day is the first valid day after
// start.  Weekends are skipped silently; each skipped holiday produces an
// AdjustHolidaySkip adjustment.  count must be positive.
func (s *Service) AddBusinessDays(start common.Date, count int, scope Scope) (common.Date, []Adjustment, error) {
	if count <= 0 {
		return common.Date{}, nil, errors.Validation("business-day count must be positive, got %d", count)
	}
	chain, err := s.ResolveScope(scope)
	if err != nil {
		return common.Date{}, nil, err
	}

	var adjustments []Adjustment
	d := start
	remaining := count
	for remaining > 0 {
		d = d.AddDays(1)
		if d.IsWeekend() {
			continue
		}
		if h, ok := s.holidayOn(d, chain); ok {
			adjustments = append(adjustments, Adjustment{
				Kind:    AdjustHolidaySkip,
				Date:    d,
				Holiday: h.Name,
				Scope:   h.Scope,
			})
			continue
		}
		remaining--
	}
	return d, adjustments, nil
}

// AddCalendarDays advances count calendar days from start and, when the
// result lands on a non-business day, rolls it forward to the next business
// day.  The rollover and any holidays encountered while rolling are recorded
// as adjustments.
func (s *Service) AddCalendarDays(start common.Date, count int, scope Scope) (common.Date, []Adjustment, error) {
	if count <= 0 {
		return common.Date{}, nil, errors.Validation("calendar-day count must be positive, got %d", count)
	}
	if _, err := s.ResolveScope(scope); err != nil {
		return common.Date{}, nil, err
	}
	return s.RollForward(start.AddDays(count), scope)
}

// RollForward moves d to the next business day if it is not one already.
// The returned adjustments contain at most one AdjustRollover entry plus one
// AdjustHolidaySkip per holiday stepped over.
func (s *Service) RollForward(d common.Date, scope Scope) (common.Date, []Adjustment, error) {
	chain, err := s.ResolveScope(scope)
	if err != nil {
		return common.Date{}, nil, err
	}

	var adjustments []Adjustment
	rolled := d
	for {
		if rolled.IsWeekend() {
			rolled = rolled.AddDays(1)
			continue
		}
		if h, ok := s.holidayOn(rolled, chain); ok {
			adjustments = append(adjustments, Adjustment{
				Kind:    AdjustHolidaySkip,
				Date:    rolled,
				Holiday: h.Name,
				Scope:   h.Scope,
			})
			rolled = rolled.AddDays(1)
			continue
		}
		break
	}
	if !rolled.Equal(d) {
		adjustments = append(adjustments, Adjustment{Kind: AdjustRollover, Date: rolled})
	}
	return rolled, adjustments, nil
}
