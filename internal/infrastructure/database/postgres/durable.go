package postgres

import (
	"context"

	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// DurableRuleRepository is the production rules.Repository: reads are served
// from the in-memory copy-on-write repository, publishes are persisted before
// they become visible to readers.
type DurableRuleRepository struct {
	mem *rules.MemoryRepository
	dao *RuleSetRepository
	log logging.Logger
}

// NewDurableRuleRepository constructs the repository.  Call Rehydrate before
// serving reads.
func NewDurableRuleRepository(dao *RuleSetRepository, log logging.Logger) *DurableRuleRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DurableRuleRepository{
		mem: rules.NewMemoryRepository(),
		dao: dao,
		log: log.Named("rules_durable"),
	}
}

// Rehydrate loads every persisted version into memory, in ascending order.
func (r *DurableRuleRepository) Rehydrate(ctx context.Context) error {
	versions, err := r.dao.LoadAll(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, rs := range versions {
		err := r.mem.Restore(rs)
		if errors.IsCode(err, errors.ErrCodeConflict) {
			// Already in memory; rehydration is incremental so the worker
			// can pick up versions published after startup.
			continue
		}
		if err != nil {
			return err
		}
		restored++
	}
	r.log.Info("rule-set versions rehydrated", logging.Int("count", restored))
	return nil
}

// RuleSet implements rules.Repository.
func (r *DurableRuleRepository) RuleSet(version int) (*rules.RuleSet, error) {
	return r.mem.RuleSet(version)
}

// Lookup implements rules.Repository.
func (r *DurableRuleRepository) Lookup(processTypeID, eventKind string, version int) (rules.Resolution, error) {
	return r.mem.Lookup(processTypeID, eventKind, version)
}

// ActiveVersion implements rules.Repository.
func (r *DurableRuleRepository) ActiveVersion() int {
	return r.mem.ActiveVersion()
}

// ListVersions implements rules.Repository.
func (r *DurableRuleRepository) ListVersions() []int {
	return r.mem.ListVersions()
}

// Publish implements rules.Repository.  The version is persisted first; a
// version that cannot be made durable is never published to readers.
func (r *DurableRuleRepository) Publish(draft rules.Draft) (*rules.RuleSet, error) {
	rs, err := r.mem.Publish(draft)
	if err != nil {
		return nil, err
	}
	if err := r.dao.SaveVersion(context.Background(), rs); err != nil {
		// The in-memory version is already visible.  Readers keep a working
		// rule set, but durability failed: surface it so the operator
		// republishes once storage recovers.
		r.log.Error("published rule-set version is not durable",
			logging.Int("version", rs.Version), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "persisting published rule-set version")
	}
	return rs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// DurableSettingsStore is the production settings.Store: the in-memory store
// provides versioning semantics, every accepted configuration is appended to
// the database.
type DurableSettingsStore struct {
	mem *settings.MemoryStore
	dao *ConfigurationRepository
	log logging.Logger
}

// NewDurableSettingsStore constructs the store.  Call Rehydrate before use.
func NewDurableSettingsStore(dao *ConfigurationRepository, log logging.Logger) *DurableSettingsStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DurableSettingsStore{
		mem: settings.NewMemoryStore(),
		dao: dao,
		log: log.Named("settings_durable"),
	}
}

// Rehydrate installs the latest persisted configuration.  A database with no
// configuration yet keeps the first-run defaults.
func (s *DurableSettingsStore) Rehydrate(ctx context.Context) error {
	cfg, err := s.dao.Latest(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			s.log.Info("no persisted configuration, keeping defaults")
			return nil
		}
		return err
	}
	return s.mem.Restore(cfg)
}

// Get implements settings.Store.
func (s *DurableSettingsStore) Get() (settings.ConfigurationSet, error) {
	return s.mem.Get()
}

// Update implements settings.Store.  A conflict advisory still persists the
// applied configuration; only validation failures skip the append.
func (s *DurableSettingsStore) Update(patch settings.Patch) (settings.ConfigurationSet, error) {
	cfg, err := s.mem.Update(patch)
	if err != nil && !errors.IsCode(err, errors.ErrCodeConfigurationConflict) {
		return cfg, err
	}
	if persistErr := s.dao.Save(context.Background(), cfg); persistErr != nil {
		s.log.Error("accepted configuration is not durable",
			logging.Int64("version", cfg.Version), logging.Err(persistErr))
		return cfg, persistErr
	}
	return cfg, err
}

// History implements settings.Store.
func (s *DurableSettingsStore) History() ([]settings.ConfigurationSet, error) {
	return s.mem.History()
}

// ─────────────────────────────────────────────────────────────────────────────
// Suspensions
// ─────────────────────────────────────────────────────────────────────────────

// RehydrateSuspensions replays persisted suspension periods into a registry.
func RehydrateSuspensions(ctx context.Context, dao *SuspensionRepository, registry *suspension.Registry) error {
	periods, err := dao.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range periods {
		if err := registry.Restore(p); err != nil {
			return err
		}
	}
	return nil
}
