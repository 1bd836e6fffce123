// Package suspension tracks the date ranges during which deadline counting
// is tolled: forensic recesses, court-ordered suspensions, calamity decrees.
// Its one algorithmic duty is the interval-union sweep in Active — an
// off-by-one in merge boundaries silently shortens or lengthens legal
// deadlines, so the boundary semantics (inclusive ends, touching intervals
// merge) are pinned down by tests.
package suspension

import (
	"sort"
	"sync"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// ScopeGlobal marks a suspension that tolls deadlines in every tribunal.
const ScopeGlobal calendar.Scope = "global"

// Period is a named suspension range.  Start and End are both inclusive.
type Period struct {
	ID     common.ID      `json:"id"`
	Scope  calendar.Scope `json:"scope"` // ScopeGlobal or a tribunal scope
	Start  common.Date    `json:"start"`
	End    common.Date    `json:"end"`
	Reason string         `json:"reason"`
}

// Validate rejects structurally invalid periods at mutation time so they can
// never reach the calculator.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return errors.New(errors.ErrCodeInvalidSuspensionRange, "suspension period requires both start and end dates")
	}
	if p.End.Before(p.Start) {
		return errors.Newf(errors.ErrCodeInvalidSuspensionRange,
			"suspension end %s precedes start %s", p.End, p.Start)
	}
	if p.Scope == "" {
		return errors.Validation("suspension period requires a scope")
	}
	return nil
}

// Interval is a merged, non-overlapping date range with inclusive bounds.
type Interval struct {
	Start common.Date `json:"start"`
	End   common.Date `json:"end"`
}

// Days returns the inclusive length of the interval in days.
func (i Interval) Days() int {
	return i.Start.DaysUntil(i.End) + 1
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// Registry is the concurrent-safe store of suspension periods.  Overlapping
// periods are kept as entered — merging happens at evaluation time, never at
// storage time, so the stored record always matches what the court ordered.
type Registry struct {
	mu      sync.RWMutex
	periods []Period
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add validates and stores a period, assigning an ID when absent.
func (r *Registry) Add(p Period) (Period, error) {
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	if p.ID == "" {
		p.ID = common.NewID()
	}
	r.mu.Lock()
	r.periods = append(r.periods, p)
	r.mu.Unlock()
	return p, nil
}

// Restore installs a persisted period, skipping IDs already present so
// rehydration stays incremental.
func (r *Registry) Restore(p Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		return errors.New(errors.ErrCodeValidation, "cannot restore a suspension period without an ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.periods {
		if existing.ID == p.ID {
			return nil
		}
	}
	r.periods = append(r.periods, p)
	return nil
}

// List returns a copy of all stored periods.
func (r *Registry) List() []Period {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Period(nil), r.periods...)
}

// Active returns the merged, non-overlapping suspension intervals that
// intersect [from, to] for the given scope.  Global periods always apply;
// scoped periods apply when their scope appears in the requested scope's
// chain.  Results are clipped to the window and sorted by start date.
func (r *Registry) Active(scope calendar.Scope, from, to common.Date) []Interval {
	if to.Before(from) {
		return nil
	}

	chain := make(map[calendar.Scope]struct{})
	chain[ScopeGlobal] = struct{}{}
	for _, s := range scope.Chain() {
		chain[s] = struct{}{}
	}

	r.mu.RLock()
	var candidates []Interval
	for _, p := range r.periods {
		if _, applies := chain[p.Scope]; !applies {
			continue
		}
		if p.End.Before(from) || p.Start.After(to) {
			continue
		}
		iv := Interval{Start: p.Start, End: p.End}
		if iv.Start.Before(from) {
			iv.Start = from
		}
		if iv.End.After(to) {
			iv.End = to
		}
		candidates = append(candidates, iv)
	}
	r.mu.RUnlock()

	return merge(candidates)
}

// TotalDays returns the summed length of the merged intervals.
func TotalDays(intervals []Interval) int {
	total := 0
	for _, iv := range intervals {
		total += iv.Days()
	}
	return total
}

// merge performs the interval-union sweep: sort by start, then fold each
// interval into the previous one when it overlaps or touches it.  With
// inclusive bounds, [1,5] and [6,9] touch (the 6th continues the run) and
// merge to [1,9]; [1,5] and [7,9] leave a one-day gap and stay separate.
func merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	out := []Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End.AddDays(1)) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
