// Package rules defines the versioned rule catalogue of the deadline engine:
// process types with per-event durations, party-role multipliers, and the
// holiday entries that feed the calendar service.  Rule sets are immutable
// snapshots; every mutation publishes a new version and old versions remain
// readable forever so past computations stay reproducible.
package rules

import (
	"time"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/pkg/errors"
)

// CurrentSchemaVersion is the serialization schema of rule-set documents.
// Readers must reject documents with a different schema version instead of
// guessing a compatible shape.
const CurrentSchemaVersion = 1

// IdentityMultiplier is the neutral party multiplier in hundredths (1.00×).
const IdentityMultiplier = 100

// ─────────────────────────────────────────────────────────────────────────────
// Rule entities
// ─────────────────────────────────────────────────────────────────────────────

// DurationRule is the base duration an event kind maps to within a process
// type, before any party multiplier is applied.
type DurationRule struct {
	Days int           `json:"days"`
	Unit calendar.Unit `json:"unit"`
}

// ProcessType groups the duration rules of one procedural class (e.g.
// "civil", "trabalhista").  Every event kind referenced by a trigger must
// resolve to exactly one duration entry, or the calculator falls back to the
// declared default type.
type ProcessType struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Durations map[string]DurationRule `json:"durations"` // event kind → rule
}

// Multiplier scales a base duration for a party role.  Values are stored in
// hundredths (150 = 1.50×) so round-up arithmetic stays integer-exact;
// multipliers below the identity are structurally invalid.
type Multiplier struct {
	Role       string `json:"role"`
	Hundredths int    `json:"hundredths"`
}

// Factor returns the multiplier as a float, for display only.  Arithmetic
// must use ApplyMultiplier.
func (m Multiplier) Factor() float64 {
	return float64(m.Hundredths) / 100
}

// ApplyMultiplier scales days by a multiplier in hundredths, rounding up:
// a legal deadline is never rounded down.
func ApplyMultiplier(days, hundredths int) int {
	return (days*hundredths + 99) / 100
}

// ─────────────────────────────────────────────────────────────────────────────
// RuleSet
// ─────────────────────────────────────────────────────────────────────────────

// RuleSet is one immutable version of the full rule catalogue.  New
// computations always use the active version; a ComputedDeadline pins the
// version it was produced under.
type RuleSet struct {
	Version              int
	SchemaVersion        int
	DefaultProcessTypeID string
	ProcessTypes         map[string]ProcessType
	Multipliers          map[string]int // party role → hundredths
	Scopes               []calendar.Scope
	Holidays             []calendar.Holiday
	PublishedAt          time.Time

	// holidaySet is materialized once at publish time and shared read-only.
	holidaySet *calendar.HolidaySet
}

// HolidaySet returns the materialized holiday calendar of this version.
func (rs *RuleSet) HolidaySet() *calendar.HolidaySet {
	return rs.holidaySet
}

// Resolution is the outcome of resolving a (process type, event kind) pair
// against one rule-set version.
type Resolution struct {
	ProcessTypeID string        `json:"process_type_id"`
	EventKind     string        `json:"event_kind"`
	Days          int           `json:"days"`
	Unit          calendar.Unit `json:"unit"`

	// Fallback is true when the requested process type or event kind was
	// unknown and the default process type supplied the duration.  Results
	// built on a fallback resolution are flagged best-effort.
	Fallback bool `json:"fallback"`
}

// Resolve maps a process type and event kind to a duration rule.  Unknown
// process types and unknown event kinds degrade to defaultTypeID (the
// configured default process type; when empty, the rule set's own default).
// Only when the fallback type cannot resolve the event kind either does
// Resolve fail, with ErrCodeUnresolvedProcessType.
func (rs *RuleSet) Resolve(processTypeID, eventKind, defaultTypeID string) (Resolution, error) {
	if defaultTypeID == "" {
		defaultTypeID = rs.DefaultProcessTypeID
	}

	if pt, ok := rs.ProcessTypes[processTypeID]; ok {
		if rule, ok := pt.Durations[eventKind]; ok {
			return Resolution{
				ProcessTypeID: processTypeID,
				EventKind:     eventKind,
				Days:          rule.Days,
				Unit:          rule.Unit,
			}, nil
		}
	}

	fallback, ok := rs.ProcessTypes[defaultTypeID]
	if !ok {
		return Resolution{}, errors.Newf(errors.ErrCodeUnresolvedProcessType,
			"process type %q unknown and default type %q not in rule set version %d",
			processTypeID, defaultTypeID, rs.Version)
	}
	rule, ok := fallback.Durations[eventKind]
	if !ok {
		return Resolution{}, errors.Newf(errors.ErrCodeUnresolvedProcessType,
			"event kind %q resolves neither under %q nor under default type %q (version %d)",
			eventKind, processTypeID, defaultTypeID, rs.Version)
	}
	return Resolution{
		ProcessTypeID: defaultTypeID,
		EventKind:     eventKind,
		Days:          rule.Days,
		Unit:          rule.Unit,
		Fallback:      true,
	}, nil
}

// MultiplierFor returns the multiplier in hundredths for a party role.
// Unknown roles are the identity: they neither extend nor shorten a deadline.
func (rs *RuleSet) MultiplierFor(role string) int {
	if h, ok := rs.Multipliers[role]; ok {
		return h
	}
	return IdentityMultiplier
}

// MaxMultiplier returns the highest multiplier among the given party roles.
// Multiple parties do not stack multiplicatively: the worst-case rule wins.
// With no roles, or only unknown roles, the identity is returned.
func (rs *RuleSet) MaxMultiplier(roles []string) int {
	max := IdentityMultiplier
	for _, role := range roles {
		if h := rs.MultiplierFor(role); h > max {
			max = h
		}
	}
	return max
}

// ─────────────────────────────────────────────────────────────────────────────
// Draft — the mutable input to Publish
// ─────────────────────────────────────────────────────────────────────────────

// Draft is the mutable description of a rule-set version before it is
// published.  Publish validates the draft, deep-copies it into an immutable
// RuleSet, and assigns the next version number.
type Draft struct {
	DefaultProcessTypeID string             `json:"default_process_type_id"`
	ProcessTypes         []ProcessType      `json:"process_types"`
	Multipliers          []Multiplier       `json:"multipliers"`
	Scopes               []calendar.Scope   `json:"scopes"`
	Holidays             []calendar.Holiday `json:"holidays"`
}

// Validate checks the structural invariants that must hold before a draft
// can become a version: durations positive with a valid unit, multipliers at
// or above the identity, a resolvable default type.
func (d Draft) Validate() error {
	if len(d.ProcessTypes) == 0 {
		return errors.Validation("draft declares no process types")
	}
	ids := make(map[string]struct{}, len(d.ProcessTypes))
	for _, pt := range d.ProcessTypes {
		if pt.ID == "" {
			return errors.Validation("process type with empty id")
		}
		if _, dup := ids[pt.ID]; dup {
			return errors.Validation("duplicate process type id %q", pt.ID)
		}
		ids[pt.ID] = struct{}{}
		for kind, rule := range pt.Durations {
			if rule.Days <= 0 {
				return errors.Validation("process type %q event %q: duration must be positive, got %d",
					pt.ID, kind, rule.Days)
			}
			if !rule.Unit.Valid() {
				return errors.Validation("process type %q event %q: unknown counting unit %q",
					pt.ID, kind, rule.Unit)
			}
		}
	}
	if d.DefaultProcessTypeID == "" {
		return errors.Validation("draft declares no default process type")
	}
	if _, ok := ids[d.DefaultProcessTypeID]; !ok {
		return errors.Validation("default process type %q is not among the declared types",
			d.DefaultProcessTypeID)
	}
	for _, m := range d.Multipliers {
		if m.Role == "" {
			return errors.Validation("multiplier with empty role")
		}
		if m.Hundredths < IdentityMultiplier {
			return errors.Validation("multiplier for role %q is below identity: %d",
				m.Role, m.Hundredths)
		}
	}
	for _, h := range d.Holidays {
		if h.Date.IsZero() {
			return errors.Validation("holiday %q has no date", h.Name)
		}
		if h.Scope == "" {
			return errors.Validation("holiday %q has no scope", h.Name)
		}
	}
	return nil
}

// build materializes an immutable RuleSet from a validated draft.
func (d Draft) build(version int, publishedAt time.Time) *RuleSet {
	types := make(map[string]ProcessType, len(d.ProcessTypes))
	for _, pt := range d.ProcessTypes {
		durations := make(map[string]DurationRule, len(pt.Durations))
		for kind, rule := range pt.Durations {
			durations[kind] = rule
		}
		types[pt.ID] = ProcessType{ID: pt.ID, Name: pt.Name, Durations: durations}
	}
	multipliers := make(map[string]int, len(d.Multipliers))
	for _, m := range d.Multipliers {
		multipliers[m.Role] = m.Hundredths
	}
	scopes := append([]calendar.Scope(nil), d.Scopes...)
	holidays := append([]calendar.Holiday(nil), d.Holidays...)

	return &RuleSet{
		Version:              version,
		SchemaVersion:        CurrentSchemaVersion,
		DefaultProcessTypeID: d.DefaultProcessTypeID,
		ProcessTypes:         types,
		Multipliers:          multipliers,
		Scopes:               scopes,
		Holidays:             holidays,
		PublishedAt:          publishedAt,
		holidaySet:           calendar.NewHolidaySet(scopes, holidays),
	}
}
