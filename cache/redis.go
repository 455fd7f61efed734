package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis so several API replicas share one
// cache. Values expire through Redis TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// redisEntry is the stored envelope; Redis has no per-key creation time.
type redisEntry struct {
	StoredAt int64           `json:"stored_at"` // unix ms
	Value    json.RawMessage `json:"value"`
}

// NewRedisStore creates a RedisStore and checks connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, prefix: "signalscrape:", ttl: ttl}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, time.Time{}, false
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, time.Time{}, false
	}
	return e.Value, time.UnixMilli(e.StoredAt), true
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return errors.New("cache: redis values must be JSON")
	}
	raw, err := json.Marshal(redisEntry{StoredAt: time.Now().UnixMilli(), Value: value})
	if err != nil {
		return fmt.Errorf("cache: encode envelope: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
