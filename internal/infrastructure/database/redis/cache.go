package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// ErrCacheMiss marks a key that is not present; callers fall through to the
// authoritative source.
var ErrCacheMiss = errors.New(errors.ErrCodeCacheError, "cache miss")

// Cache is a JSON value cache with loader coalescing.
type Cache struct {
	client       *Client
	prefix       string
	defaultTTL   time.Duration
	logger       logging.Logger
	singleflight singleflight.Group
}

// NewCache constructs a Cache over client.  prefix namespaces all keys.
func NewCache(client *Client, prefix string, defaultTTL time.Duration, log logging.Logger) *Cache {
	if defaultTTL == 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		logger:     log.Named("cache"),
	}
}

func (c *Cache) fullKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// jitterTTL spreads expirations by ±10% so a republished rule set does not
// expire on every instance in the same second.
func (c *Cache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	jitter := time.Duration(rand.Int63n(int64(ttl) / 5))
	return ttl - ttl/10 + jitter
}

// Get reads a JSON value into dest.  Returns ErrCacheMiss when absent.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decoding cached value")
	}
	return nil
}

// Set writes a JSON value with a jittered TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding cache value")
	}
	if err := c.client.Redis().Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Redis().Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}

// GetOrSet reads key into dest, invoking loader on a miss.  Concurrent
// misses for the same key share one loader call via singleflight.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err != ErrCacheMiss {
		// A cache outage degrades to loading from source, never to a
		// failed lookup.
		c.logger.Warn("cache read failed", logging.String("key", key), logging.Err(err))
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, loaded, ttl); err != nil {
			// A write failure degrades to uncached reads, never to a
			// failed lookup.
			c.logger.Warn("cache backfill failed", logging.String("key", key), logging.Err(err))
		}
		return loaded, nil
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding loaded value")
	}
	return json.Unmarshal(data, dest)
}
