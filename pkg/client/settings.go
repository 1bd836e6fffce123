// Configuration sub-client: engine-wide settings with last-writer-wins
// updates and conflict advisories.

package client

import "context"

// Configuration is the engine-wide configuration set.
type Configuration struct {
	SchemaVersion        int    `json:"schema_version"`
	Version              int64  `json:"version"`
	CountingMode         string `json:"counting_mode"`
	DefaultProcessTypeID string `json:"default_process_type_id"`
	LeadTimeDays         int    `json:"notification_lead_time_days"`
	BackupLocal          bool   `json:"backup_local"`
	RuleSetVersion       int64  `json:"rule_set_version"`
	UpdatedAt            string `json:"updated_at"`
}

// ConfigurationPatch updates a subset of the configuration.  Nil fields keep
// their current values.
type ConfigurationPatch struct {
	CountingMode         *string `json:"counting_mode,omitempty"`
	DefaultProcessTypeID *string `json:"default_process_type_id,omitempty"`
	LeadTimeDays         *int    `json:"notification_lead_time_days,omitempty"`
	BackupLocal          *bool   `json:"backup_local,omitempty"`
	RuleSetVersion       *int64  `json:"rule_set_version,omitempty"`

	// ExpectedVersion, when non-zero, detects a lost update race.  The
	// update is still applied; a lost race is reported via
	// ConfigurationUpdate.Conflict.
	ExpectedVersion int64 `json:"expected_version,omitempty"`
}

// ConfigurationUpdate is the result of an update.  Conflict is non-empty when
// ExpectedVersion was stale; the update was applied regardless.
type ConfigurationUpdate struct {
	Configuration
	Conflict string `json:"conflict,omitempty"`
}

// ConfigurationHistory lists superseded configuration versions, newest first.
type ConfigurationHistory struct {
	History []Configuration `json:"history"`
	Count   int             `json:"count"`
}

// SettingsClient accesses the configuration endpoints.
type SettingsClient struct {
	client *Client
}

// Get returns the current configuration.
func (s *SettingsClient) Get(ctx context.Context) (*Configuration, error) {
	var result Configuration
	if err := s.client.get(ctx, "/api/v1/settings", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update applies a configuration patch.
func (s *SettingsClient) Update(ctx context.Context, patch ConfigurationPatch) (*ConfigurationUpdate, error) {
	var result ConfigurationUpdate
	if err := s.client.put(ctx, "/api/v1/settings", patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History returns superseded configuration versions, newest first.
func (s *SettingsClient) History(ctx context.Context) (*ConfigurationHistory, error) {
	var result ConfigurationHistory
	if err := s.client.get(ctx, "/api/v1/settings/history", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
