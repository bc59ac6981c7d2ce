package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"portfolio-backtest/internal/backtest"
)

type cacheEntry struct {
	result    *backtest.Result
	expiresAt time.Time
}

// ResultCache keeps recently produced or fetched results in memory for ttl.
// A nil *ResultCache is a valid, always-empty cache.
type ResultCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewResultCache returns nil, a disabled cache, when ttl is not positive.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		return nil
	}
	return &ResultCache{store: map[string]cacheEntry{}, ttl: ttl, now: time.Now}
}

func (c *ResultCache) Get(key string) (*backtest.Result, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.result, true
}

func (c *ResultCache) Set(key string, r *backtest.Result) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = cacheEntry{result: r, expiresAt: c.now().Add(c.ttl)}
}

// Evict drops every entry holding the result with the given ID, whatever key
// it was stored under, and reports how many were removed.
func (c *ResultCache) Evict(id string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, entry := range c.store {
		if key == id || (entry.result != nil && entry.result.ID == id) {
			delete(c.store, key)
			n++
		}
	}
	return n
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Sweep drops expired entries and reports how many were removed.
func (c *ResultCache) Sweep() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (c *ResultCache) Run(ctx context.Context, interval time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// CacheKey hashes any JSON-encodable request into a stable key.
func CacheKey(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(raw)
	return hex.EncodeToString(hash[:])
}
