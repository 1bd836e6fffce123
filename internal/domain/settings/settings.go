// Package settings holds the versioned engine configuration: counting mode,
// default process type, notification lead time.  Updates follow whole-object
// replace semantics with last-writer-wins at the object level; every
// superseded version is retained for audit.
package settings

import (
	"sync"
	"time"

	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// CurrentSchemaVersion is bumped whenever the persisted ConfigurationSet
// shape changes incompatibly.  Readers must reject unknown schema versions
// rather than guess.
const CurrentSchemaVersion = 1

// CountingMode governs how much authority a computed deadline carries.
type CountingMode string

const (
	// CountingManual: every computed deadline requires explicit confirmation.
	CountingManual CountingMode = "manual"
	// CountingAutomatic: computed deadlines are authoritative as computed.
	CountingAutomatic CountingMode = "automatic"
	// CountingAssisted: deadlines carry an externally derived confidence
	// score alongside the suggested date, which still awaits confirmation.
	CountingAssisted CountingMode = "assisted"
)

// Valid reports whether m is a recognized counting mode.
func (m CountingMode) Valid() bool {
	switch m {
	case CountingManual, CountingAutomatic, CountingAssisted:
		return true
	}
	return false
}

// ConfigurationSet is the engine's user-facing configuration.  It is created
// on first run with defaults and mutated only through Store.Update, which
// replaces the whole object, bumps Version, and refreshes UpdatedAt.
type ConfigurationSet struct {
	SchemaVersion        int              `json:"schema_version"`
	Version              int64            `json:"version"`
	CountingMode         CountingMode     `json:"counting_mode"`
	DefaultProcessTypeID string           `json:"default_process_type_id"`
	LeadTimeDays         int              `json:"notification_lead_time_days"`
	BackupLocal          bool             `json:"backup_local"`
	RuleSetVersion       int64            `json:"rule_set_version"`
	UpdatedAt            common.Timestamp `json:"updated_at"`
}

// Defaults returns the first-run configuration.
func Defaults() ConfigurationSet {
	return ConfigurationSet{
		SchemaVersion:        CurrentSchemaVersion,
		Version:              1,
		CountingMode:         CountingManual,
		DefaultProcessTypeID: "",
		LeadTimeDays:         3,
		BackupLocal:          true,
		RuleSetVersion:       0, // 0 selects whatever rule-set version is active
		UpdatedAt:            common.Now(),
	}
}

// Validate rejects configurations no caller should ever persist.
func (c ConfigurationSet) Validate() error {
	if c.SchemaVersion != CurrentSchemaVersion {
		return errors.Newf(errors.ErrCodeUnknownSchemaVersion,
			"configuration schema version %d is not supported (want %d)", c.SchemaVersion, CurrentSchemaVersion)
	}
	if !c.CountingMode.Valid() {
		return errors.Validation("unknown counting mode %q", c.CountingMode)
	}
	if c.LeadTimeDays < 0 {
		return errors.Validation("notification lead time must not be negative")
	}
	if c.RuleSetVersion < 0 {
		return errors.Validation("rule-set version must not be negative")
	}
	return nil
}

// Patch carries the fields a settings client may change.  Nil fields keep
// their current value; the resulting object replaces the stored one wholesale.
type Patch struct {
	CountingMode         *CountingMode `json:"counting_mode,omitempty"`
	DefaultProcessTypeID *string       `json:"default_process_type_id,omitempty"`
	LeadTimeDays         *int          `json:"notification_lead_time_days,omitempty"`
	BackupLocal          *bool         `json:"backup_local,omitempty"`
	RuleSetVersion       *int64        `json:"rule_set_version,omitempty"`

	// ExpectedVersion, when non-zero, lets a client detect a lost race.
	// The update is still applied last-writer-wins, but the returned error
	// advisory carries ErrCodeConfigurationConflict alongside the result.
	ExpectedVersion int64 `json:"expected_version,omitempty"`
}

func (p Patch) apply(base ConfigurationSet) ConfigurationSet {
	next := base
	if p.CountingMode != nil {
		next.CountingMode = *p.CountingMode
	}
	if p.DefaultProcessTypeID != nil {
		next.DefaultProcessTypeID = *p.DefaultProcessTypeID
	}
	if p.LeadTimeDays != nil {
		next.LeadTimeDays = *p.LeadTimeDays
	}
	if p.BackupLocal != nil {
		next.BackupLocal = *p.BackupLocal
	}
	if p.RuleSetVersion != nil {
		next.RuleSetVersion = *p.RuleSetVersion
	}
	return next
}

// ─────────────────────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────────────────────

// Store is the configuration access seam handed to the calculator and the
// notification scheduler instead of any ambient global state.
type Store interface {
	// Get returns the current configuration, creating defaults on first use.
	Get() (ConfigurationSet, error)
	// Update applies the patch with whole-object replace semantics.  When
	// the patch carried a stale ExpectedVersion the new configuration is
	// still returned, together with an ErrCodeConfigurationConflict
	// advisory error; both versions remain in history.
	Update(patch Patch) (ConfigurationSet, error)
	// History returns superseded configurations, newest first.
	History() ([]ConfigurationSet, error)
}

// MemoryStore is the in-process Store used by tests and the CLI.
type MemoryStore struct {
	mu      sync.Mutex
	current ConfigurationSet
	history []ConfigurationSet
	now     func() time.Time
}

// NewMemoryStore returns a MemoryStore seeded with Defaults.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{current: Defaults(), now: time.Now}
}

// NewMemoryStoreAt is like NewMemoryStore with an injected clock.
func NewMemoryStoreAt(now func() time.Time) *MemoryStore {
	s := &MemoryStore{now: now}
	s.current = Defaults()
	s.current.UpdatedAt = common.Timestamp(now().UTC())
	return s
}

// Restore replaces the store contents with a previously persisted
// configuration, rejecting unknown schema versions.
func (s *MemoryStore) Restore(c ConfigurationSet) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get() (ConfigurationSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

// Update implements Store.
func (s *MemoryStore) Update(patch Patch) (ConfigurationSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := patch.apply(s.current)
	next.Version = s.current.Version + 1
	next.UpdatedAt = common.Timestamp(s.now().UTC())
	if err := next.Validate(); err != nil {
		return s.current, err
	}

	s.history = append(s.history, s.current)
	prev := s.current
	s.current = next

	if patch.ExpectedVersion != 0 && patch.ExpectedVersion != prev.Version {
		return next, errors.Newf(errors.ErrCodeConfigurationConflict,
			"configuration update raced: expected version %d, applied over %d", patch.ExpectedVersion, prev.Version)
	}
	return next, nil
}

// History implements Store.
func (s *MemoryStore) History() ([]ConfigurationSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConfigurationSet, len(s.history))
	for i := range s.history {
		out[i] = s.history[len(s.history)-1-i]
	}
	return out, nil
}
