// Rule-set sub-client: version listing, active document retrieval, and
// publishing new versions.

package client

import "context"

// ─────────────────────────────────────────────────────────────────────────────
// DTOs — request / response
// ─────────────────────────────────────────────────────────────────────────────

// DurationRule binds an event kind to a day count and counting unit.
type DurationRule struct {
	Days int    `json:"days"`
	Unit string `json:"unit"`
}

// ProcessType groups duration rules under a procedural regime.
type ProcessType struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Durations map[string]DurationRule `json:"durations"`
}

// Multiplier extends deadlines for a party role, in hundredths (200 = 2.0x).
type Multiplier struct {
	Role       string `json:"role"`
	Hundredths int    `json:"hundredths"`
}

// Holiday is a non-working date within a scope.
type Holiday struct {
	Date      string `json:"date"`
	Scope     string `json:"scope"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// RuleDocument is a published rule-set version in wire form.
type RuleDocument struct {
	SchemaVersion        int           `json:"schema_version"`
	Version              int           `json:"version"`
	DefaultProcessTypeID string        `json:"default_process_type_id"`
	ProcessTypes         []ProcessType `json:"process_types"`
	Multipliers          []Multiplier  `json:"multipliers"`
	Scopes               []string      `json:"scopes"`
	Holidays             []Holiday     `json:"holidays"`
	PublishedAt          string        `json:"published_at"`
}

// PublishRequest is the body of a rule-set publication.
type PublishRequest struct {
	DefaultProcessTypeID string        `json:"default_process_type_id"`
	ProcessTypes         []ProcessType `json:"process_types"`
	Multipliers          []Multiplier  `json:"multipliers,omitempty"`
	Scopes               []string      `json:"scopes"`
	Holidays             []Holiday     `json:"holidays,omitempty"`
	PublishedBy          string        `json:"published_by,omitempty"`
}

// RuleVersions lists the published versions and which one is active.
type RuleVersions struct {
	Versions []int `json:"versions"`
	Active   int   `json:"active"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Client
// ─────────────────────────────────────────────────────────────────────────────

// RulesClient accesses the rule-set endpoints.
type RulesClient struct {
	client *Client
}

// Versions lists all published rule-set versions.
func (r *RulesClient) Versions(ctx context.Context) (*RuleVersions, error) {
	var result RuleVersions
	if err := r.client.get(ctx, "/api/v1/rules/versions", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Active returns the currently active rule-set document.
func (r *RulesClient) Active(ctx context.Context) (*RuleDocument, error) {
	var result RuleDocument
	if err := r.client.get(ctx, "/api/v1/rules/active", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Publish validates and publishes a new rule-set version.  The returned
// document carries the assigned version number; existing deadlines keep the
// version they were computed under until a recompute sweep runs.
func (r *RulesClient) Publish(ctx context.Context, req PublishRequest) (*RuleDocument, error) {
	var result RuleDocument
	if err := r.client.post(ctx, "/api/v1/rules/publish", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
