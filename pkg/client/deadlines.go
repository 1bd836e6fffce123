// Deadline computation sub-client: trigger-event submission, retrieval, and
// audit-oriented listing.

package client

import (
	"context"
	"fmt"
	"net/url"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs — request / response
// ─────────────────────────────────────────────────────────────────────────────

// TriggerEvent describes the procedural event a deadline is computed from.
// Dates use the "2006-01-02" civil-date form.
type TriggerEvent struct {
	BaseDate            string   `json:"base_date"`
	ProcessTypeID       string   `json:"process_type_id,omitempty"`
	EventKind           string   `json:"event_kind"`
	PartyRoles          []string `json:"party_roles,omitempty"`
	Scope               string   `json:"scope"`
	RuleVersionOverride int      `json:"rule_version_override,omitempty"`
}

// AuditEntry is one step of a computation's audit trail.
type AuditEntry struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	Date   string `json:"date,omitempty"`
}

// Deadline is a computed deadline record.
type Deadline struct {
	ID                   string       `json:"id"`
	Event                TriggerEvent `json:"event"`
	RuleVersion          int          `json:"rule_version"`
	EffectiveScope       string       `json:"effective_scope"`
	BaseDays             int          `json:"base_days"`
	MultiplierHundredths int          `json:"multiplier_hundredths"`
	MultipliedDays       int          `json:"multiplied_days"`
	Unit                 string       `json:"unit"`
	DueDate              string       `json:"due_date"`
	CountingMode         string       `json:"counting_mode"`
	Authoritative        bool         `json:"authoritative"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
	BestEffort           bool         `json:"best_effort"`
	Confidence           *float64     `json:"confidence,omitempty"`
	SupersedesID         string       `json:"supersedes_id,omitempty"`
	Audit                []AuditEntry `json:"audit"`
	ComputedAt           string       `json:"computed_at"`
}

// DeadlineList is the paginated listing response.
type DeadlineList struct {
	Deadlines []Deadline `json:"deadlines"`
	Count     int        `json:"count"`
}

// ListDeadlinesQuery filters the deadline listing.
type ListDeadlinesQuery struct {
	// DueBefore keeps only deadlines due on or before this civil date.
	DueBefore string
}

// ─────────────────────────────────────────────────────────────────────────────
// Client
// ─────────────────────────────────────────────────────────────────────────────

// DeadlinesClient accesses the deadline computation endpoints.
type DeadlinesClient struct {
	client *Client
}

// Compute submits a trigger event and returns the computed deadline.
func (d *DeadlinesClient) Compute(ctx context.Context, event TriggerEvent) (*Deadline, error) {
	var result Deadline
	if err := d.client.post(ctx, "/api/v1/deadlines/compute", event, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get retrieves a single deadline by ID.
func (d *DeadlinesClient) Get(ctx context.Context, id string) (*Deadline, error) {
	if id == "" {
		return nil, fmt.Errorf("prazo: deadline id is required")
	}
	var result Deadline
	if err := d.client.get(ctx, "/api/v1/deadlines/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns deadlines in due-date order with their full audit trails.
func (d *DeadlinesClient) List(ctx context.Context, query ListDeadlinesQuery) (*DeadlineList, error) {
	path := "/api/v1/deadlines"
	if query.DueBefore != "" {
		path += "?due_before=" + url.QueryEscape(query.DueBefore)
	}
	var result DeadlineList
	if err := d.client.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
