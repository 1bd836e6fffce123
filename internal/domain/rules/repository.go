package rules

import (
	"sort"
	"sync"
	"time"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/pkg/errors"
)

// Repository is the versioned store of rule sets.  Readers never observe a
// partially-applied mutation: a version is either fully visible or not yet
// published.  Implementations must be safe for concurrent use.
type Repository interface {
	// RuleSet returns the immutable snapshot for a version.  Version 0 means
	// "the active version".  Unknown versions fail with
	// ErrCodeUnknownRuleVersion.
	RuleSet(version int) (*RuleSet, error)

	// Lookup resolves a (process type, event kind) pair against a version,
	// using the rule set's own default type for fallback.
	Lookup(processTypeID, eventKind string, version int) (Resolution, error)

	// ActiveVersion returns the version new calculations pin.  Zero when
	// nothing has been published yet.
	ActiveVersion() int

	// ListVersions returns all published versions in ascending order.
	ListVersions() []int

	// Publish validates a draft and installs it as the next version,
	// returning the new snapshot.
	Publish(draft Draft) (*RuleSet, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// MemoryRepository
// ─────────────────────────────────────────────────────────────────────────────

// MemoryRepository is the copy-on-write in-memory Repository.  Publish
// installs a freshly built snapshot under the write lock; readers hold the
// read lock only long enough to fetch the snapshot pointer, then operate on
// immutable data without any locking.
type MemoryRepository struct {
	mu       sync.RWMutex
	versions map[int]*RuleSet
	active   int
	now      func() time.Time
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		versions: make(map[int]*RuleSet),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RuleSet implements Repository.
func (r *MemoryRepository) RuleSet(version int) (*RuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if version == 0 {
		version = r.active
	}
	rs, ok := r.versions[version]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownRuleVersion,
			"rule-set version %d was never published", version)
	}
	return rs, nil
}

// Lookup implements Repository.
func (r *MemoryRepository) Lookup(processTypeID, eventKind string, version int) (Resolution, error) {
	rs, err := r.RuleSet(version)
	if err != nil {
		return Resolution{}, err
	}
	return rs.Resolve(processTypeID, eventKind, "")
}

// ActiveVersion implements Repository.
func (r *MemoryRepository) ActiveVersion() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ListVersions implements Repository.
func (r *MemoryRepository) ListVersions() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.versions))
	for v := range r.versions {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Publish implements Repository.
func (r *MemoryRepository) Publish(draft Draft) (*RuleSet, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	version := r.active + 1
	rs := draft.build(version, r.now())
	r.versions[version] = rs
	r.active = version
	return rs, nil
}

// Restore installs an already-built snapshot, used when rehydrating
// published versions from persistent storage at startup.  Versions must be
// restored in ascending order; the highest becomes active.
func (r *MemoryRepository) Restore(rs *RuleSet) error {
	if rs == nil || rs.Version <= 0 {
		return errors.Validation("cannot restore a rule set without a positive version")
	}
	if rs.SchemaVersion != CurrentSchemaVersion {
		return errors.Newf(errors.ErrCodeUnknownSchemaVersion,
			"rule-set document schema %d is not supported (want %d)",
			rs.SchemaVersion, CurrentSchemaVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.versions[rs.Version]; exists {
		return errors.Conflict("rule-set version already present").
			WithDetail("restoring would overwrite an immutable version")
	}
	if rs.holidaySet == nil {
		rs.holidaySet = calendar.NewHolidaySet(rs.Scopes, rs.Holidays)
	}
	r.versions[rs.Version] = rs
	if rs.Version > r.active {
		r.active = rs.Version
	}
	return nil
}
