package deadline

import (
	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// AuditKind classifies one step of a computation's audit trail.
type AuditKind string

const (
	AuditRuleResolved        AuditKind = "rule_resolved"
	AuditFallbackProcessType AuditKind = "fallback_process_type"
	AuditScopeFallback       AuditKind = "scope_fallback"
	AuditMultiplierApplied   AuditKind = "multiplier_applied"
	AuditHolidaySkipped      AuditKind = "holiday_skipped"
	AuditRollover            AuditKind = "rollover"
	AuditSuspensionExtension AuditKind = "suspension_extension"
	AuditCountingMode        AuditKind = "counting_mode"
	AuditConfidenceScored    AuditKind = "confidence_scored"
	AuditConfidenceFailed    AuditKind = "confidence_unavailable"
)

// AuditEntry is one line of the trail explaining how a due date was reached.
// Date is set when the entry concerns a specific calendar day.
type AuditEntry struct {
	Kind   AuditKind   `json:"kind"`
	Detail string      `json:"detail"`
	Date   common.Date `json:"date,omitempty"`
}

// ComputedDeadline is the immutable result of one computation.  Recomputation
// never mutates an existing record; it produces a new one carrying
// SupersedesID, and the caller decides whether to supersede.
type ComputedDeadline struct {
	ID          common.ID    `json:"id"`
	Event       TriggerEvent `json:"event"`
	RuleVersion int          `json:"rule_version"`

	// EffectiveScope is the scope the calendar actually used; it differs
	// from Event.Scope only after a national fallback.
	EffectiveScope calendar.Scope `json:"effective_scope"`

	BaseDays             int           `json:"base_days"`
	MultiplierHundredths int           `json:"multiplier_hundredths"`
	MultipliedDays       int           `json:"multiplied_days"`
	Unit                 calendar.Unit `json:"unit"`
	DueDate              common.Date   `json:"due_date"`

	CountingMode         settings.CountingMode `json:"counting_mode"`
	Authoritative        bool                  `json:"authoritative"`
	RequiresConfirmation bool                  `json:"requires_confirmation"`
	BestEffort           bool                  `json:"best_effort"`
	Confidence           *float64              `json:"confidence,omitempty"`

	SupersedesID common.ID        `json:"supersedes_id,omitempty"`
	Audit        []AuditEntry     `json:"audit"`
	ComputedAt   common.Timestamp `json:"computed_at"`
}

// HasAudit reports whether the trail contains an entry of the given kind.
func (d ComputedDeadline) HasAudit(kind AuditKind) bool {
	for _, e := range d.Audit {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
