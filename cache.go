package folio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("folio: cache miss")

const cachePrefix = "folio:"

// Cache keys of the public page data.
const (
	keyHome     = "home"
	keyTags     = "tags"
	keySite     = "site"
	keyFeed     = "feed"
	keySkills   = "skills"
	keyProjects = "projects"
)

type cacheEntry struct {
	data    []byte
	expires time.Time
}

// ContentCache caches rendered page data as JSON with a TTL. It uses Redis
// when an address is configured and reachable, and an in-memory map
// otherwise.
type ContentCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *Metrics

	mu      sync.RWMutex
	entries map[string]cacheEntry

	// loadMu serializes Load misses so concurrent requests share one query.
	loadMu sync.Mutex

	// gen counts invalidations. A load that straddles one is not stored.
	gen atomic.Uint64
}

// NewContentCache connects to addr when it is set. A failed ping falls
// back to memory.
func NewContentCache(ctx context.Context, addr string, ttl time.Duration, metrics *Metrics) *ContentCache {
	c := &ContentCache{ttl: ttl, metrics: metrics, entries: make(map[string]cacheEntry)}
	if addr == "" {
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable; using in-memory cache")
		_ = client.Close()
		return c
	}
	c.client = client
	return c
}

// Backend names the active storage, "redis" or "memory".
func (c *ContentCache) Backend() string {
	if c.client != nil {
		return "redis"
	}
	return "memory"
}

// Get decodes the value at key into dest.
func (c *ContentCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.get(ctx, cachePrefix+key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			c.metrics.CacheMiss()
		}
		return err
	}
	c.metrics.CacheHit()
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *ContentCache) get(ctx context.Context, key string) ([]byte, error) {
	if c.client != nil {
		val, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, fmt.Errorf("cache get error: %w", err)
		}
		return val, nil
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return nil, ErrCacheMiss
	}
	return e.data, nil
}

// Set stores value at key for the cache TTL.
func (c *ContentCache) Set(ctx context.Context, key string, value any) error {
	return c.store(ctx, key, value, c.gen.Load())
}

// store writes value unless an Invalidate has run since gen was read.
func (c *ContentCache) store(ctx context.Context, key string, value any, gen uint64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	key = cachePrefix + key
	if c.client != nil {
		if c.gen.Load() != gen {
			return nil
		}
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			return fmt.Errorf("cache set error: %w", err)
		}
		// An Invalidate may have scanned before the write landed.
		if c.gen.Load() != gen {
			if err := c.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("cache delete error: %w", err)
			}
		}
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() == gen {
		c.entries[key] = cacheEntry{data: data, expires: time.Now().Add(c.ttl)}
	}
	return nil
}

// Invalidate drops every cached entry so the next read triggers a fresh load.
func (c *ContentCache) Invalidate(ctx context.Context) {
	if c.client != nil {
		c.gen.Add(1)
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, cachePrefix+"*", 100).Result()
			if err != nil {
				log.Error().Err(err).Msg("cache invalidate scan failed")
				return
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					log.Error().Err(err).Strs("keys", keys).Msg("cache delete failed")
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
	c.mu.Lock()
	c.gen.Add(1)
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of in-memory entries, expired ones included.
func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases the Redis connection, if any.
func (c *ContentCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Load returns the cached value at key, calling fn and caching its result
// on a miss. Cache failures are logged and fall through to fn.
func Load[T any](ctx context.Context, c *ContentCache, key string, fn func(context.Context) (T, error)) (T, error) {
	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if err := c.Get(ctx, key, &v); err == nil {
		return v, nil
	}

	gen := c.gen.Load()
	v, err = fn(ctx)
	if err != nil {
		return v, err
	}
	if err := c.store(ctx, key, v, gen); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}

// invalidate drops all cached content after a write.
func (a *App) invalidate(ctx context.Context) {
	if a.Cache != nil {
		a.Cache.Invalidate(ctx)
	}
}
