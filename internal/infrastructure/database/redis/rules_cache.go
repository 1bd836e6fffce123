package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
)

// ruleSetTTL is generous: published versions are immutable, so staleness is
// only a memory concern.
const ruleSetTTL = 12 * time.Hour

// CachedRuleRepository decorates a rules.Repository with a Redis-backed
// document cache, keyed by version.  Only concrete versions are cached; the
// active pointer (version 0) always hits the source so publishes take effect
// immediately on every instance.
type CachedRuleRepository struct {
	source rules.Repository
	cache  *Cache
	logger logging.Logger
}

// NewCachedRuleRepository wraps source with caching.
func NewCachedRuleRepository(source rules.Repository, cache *Cache, log logging.Logger) *CachedRuleRepository {
	return &CachedRuleRepository{source: source, cache: cache, logger: log.Named("rules_cache")}
}

// RuleSet implements rules.Repository.
func (r *CachedRuleRepository) RuleSet(version int) (*rules.RuleSet, error) {
	if version == 0 {
		return r.source.RuleSet(0)
	}

	var doc rules.Document
	key := fmt.Sprintf("ruleset:v%d", version)
	err := r.cache.GetOrSet(context.Background(), key, &doc, ruleSetTTL, func(context.Context) (interface{}, error) {
		rs, err := r.source.RuleSet(version)
		if err != nil {
			return nil, err
		}
		return rules.ToDocument(rs), nil
	})
	if err != nil {
		return nil, err
	}
	return rules.FromDocument(doc)
}

// Lookup implements rules.Repository.
func (r *CachedRuleRepository) Lookup(processTypeID, eventKind string, version int) (rules.Resolution, error) {
	rs, err := r.RuleSet(version)
	if err != nil {
		return rules.Resolution{}, err
	}
	return rs.Resolve(processTypeID, eventKind, rs.DefaultProcessTypeID)
}

// ActiveVersion implements rules.Repository.
func (r *CachedRuleRepository) ActiveVersion() int {
	return r.source.ActiveVersion()
}

// ListVersions implements rules.Repository.
func (r *CachedRuleRepository) ListVersions() []int {
	return r.source.ListVersions()
}

// Publish implements rules.Repository.  The new version is written through
// to the cache so followers warm immediately.
func (r *CachedRuleRepository) Publish(draft rules.Draft) (*rules.RuleSet, error) {
	rs, err := r.source.Publish(draft)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("ruleset:v%d", rs.Version)
	if err := r.cache.Set(context.Background(), key, rules.ToDocument(rs), ruleSetTTL); err != nil {
		r.logger.Warn("warming published rule set failed", logging.Int("version", rs.Version), logging.Err(err))
	}
	return rs, nil
}
