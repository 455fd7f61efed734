// Package cache stores recent extraction responses so repeated API calls for
// the same page can skip the fetch.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Store is a byte-level backend.
type Store interface {
	// Get returns the value for key and when it was stored.
	Get(ctx context.Context, key string) ([]byte, time.Time, bool)
	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Name identifies the backend ("memory", "redis").
	Name() string
}

// Cache wraps a Store with JSON encoding and max-age checks. A nil *Cache
// is a valid, always-missing cache.
type Cache struct {
	store Store
}

// New creates a Cache over store.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Key generates a cache key from the given parts.
func Key(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Backend returns the store name, or "disabled".
func (c *Cache) Backend() string {
	if c == nil || c.store == nil {
		return "disabled"
	}
	return c.store.Name()
}

// Get decodes the entry for key into out if it exists and is younger than
// maxAgeMs milliseconds. If maxAgeMs <= 0, no lookup is performed.
func (c *Cache) Get(ctx context.Context, key string, maxAgeMs int, out any) bool {
	if c == nil || c.store == nil || maxAgeMs <= 0 {
		return false
	}
	raw, storedAt, ok := c.store.Get(ctx, key)
	if !ok {
		return false
	}
	if time.Since(storedAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn("cache: undecodable entry", "backend", c.store.Name(), "error", err)
		return false
	}
	return true
}

// Set encodes v and stores it under key. Failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	if c == nil || c.store == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache: encode failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		slog.Warn("cache: store failed", "backend", c.store.Name(), "error", err)
	}
}
