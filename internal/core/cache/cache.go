// Package cache provides the two-tier TTL cache and the per-key
// computation debouncer used by the metrics layer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// TieredCache is an in-memory TTL map backed by an optional persistent
// store. Reads hit memory first and backfill it from the store; writes
// go to memory synchronously and to the store best-effort. A store
// failure never fails the caller.
type TieredCache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry

	store  ports.CacheStore // may be nil
	logger *slog.Logger
	now    func() time.Time
}

// New creates a cache. store may be nil for a memory-only cache.
func New(store ports.CacheStore, logger *slog.Logger) *TieredCache {
	return &TieredCache{
		entries: make(map[string]domain.CacheEntry),
		store:   store,
		logger:  logger.With("component", "tiered_cache"),
		now:     time.Now,
	}
}

// WithClock overrides the cache's clock. Test hook.
func (c *TieredCache) WithClock(now func() time.Time) *TieredCache {
	c.now = now
	return c
}

// Set serializes value and stores it in both tiers with the given TTL.
func (c *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	now := c.now()
	entry := domain.CacheEntry{
		Key:        key,
		Value:      data,
		ComputedAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Set(ctx, entry); err != nil {
			c.logger.Warn("persistent cache write failed", "key", key, "error", err)
		}
	}

	return nil
}

// Get looks up key, memory tier first, and unmarshals the value into
// dest. Expired entries are dropped on read. A persistent hit backfills
// the memory tier. Returns false on a miss.
func (c *TieredCache) Get(ctx context.Context, key string, dest any) bool {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if entry.Expired(now) {
			c.mu.Lock()
			// Recheck under the write lock: a Set may have raced.
			if current, still := c.entries[key]; still && current.Expired(now) {
				delete(c.entries, key)
			}
			c.mu.Unlock()
		} else {
			return c.unmarshal(entry, key, dest)
		}
	}

	if c.store == nil {
		return false
	}

	stored, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCacheMiss) {
			c.logger.Warn("persistent cache read failed", "key", key, "error", err)
		}
		return false
	}
	if stored.Expired(now) {
		return false
	}

	c.mu.Lock()
	c.entries[key] = *stored
	c.mu.Unlock()

	return c.unmarshal(*stored, key, dest)
}

func (c *TieredCache) unmarshal(entry domain.CacheEntry, key string, dest any) bool {
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		c.logger.Warn("cached value unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

// Invalidate removes the given keys from both tiers.
func (c *TieredCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, keys...); err != nil {
			c.logger.Warn("persistent cache delete failed", "keys", keys, "error", err)
		}
	}
}

// InvalidatePrefix removes every key with the given prefix from both tiers.
func (c *TieredCache) InvalidatePrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteByPrefix(ctx, prefix); err != nil {
			c.logger.Warn("persistent cache prefix delete failed", "prefix", prefix, "error", err)
		}
	}
}

// Stats describes the memory tier at a point in time.
type Stats struct {
	Entries int      `json:"entries"`
	Expired int      `json:"expired"`
	Keys    []string `json:"keys"`
}

// Stats returns a snapshot of the memory tier.
func (c *TieredCache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{Keys: make([]string, 0, len(c.entries))}
	for key, entry := range c.entries {
		stats.Entries++
		if entry.Expired(now) {
			stats.Expired++
		}
		stats.Keys = append(stats.Keys, key)
	}
	return stats
}
