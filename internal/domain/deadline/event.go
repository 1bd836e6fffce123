package deadline

import (
	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// TriggerEvent is the inbound fact that starts a deadline: a publication, an
// intimation, a filing.  It is supplied by ingestion collaborators and never
// mutated by the engine.
type TriggerEvent struct {
	BaseDate      common.Date    `json:"base_date"`
	ProcessTypeID string         `json:"process_type_id"`
	EventKind     string         `json:"event_kind"`
	PartyRoles    []string       `json:"party_roles,omitempty"`
	Scope         calendar.Scope `json:"scope"`

	// RuleVersionOverride pins a specific rule-set version.  Zero selects
	// the active version at computation time.
	RuleVersionOverride int `json:"rule_version_override,omitempty"`
}

// Validate rejects structurally invalid events at the boundary.  Legally
// ambiguous events (unknown process type, unknown scope) pass validation and
// degrade inside Compute instead.
func (e TriggerEvent) Validate() error {
	if e.BaseDate.IsZero() {
		return errors.New(errors.ErrCodeInvalidTriggerEvent, "trigger event requires a base date")
	}
	if e.EventKind == "" {
		return errors.New(errors.ErrCodeInvalidTriggerEvent, "trigger event requires an event kind")
	}
	if e.Scope == "" {
		return errors.New(errors.ErrCodeInvalidTriggerEvent, "trigger event requires a scope")
	}
	if e.RuleVersionOverride < 0 {
		return errors.Newf(errors.ErrCodeInvalidTriggerEvent, "rule version override %d is negative", e.RuleVersionOverride)
	}
	return nil
}
