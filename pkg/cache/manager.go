package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 24 * time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrEmptyBody is returned when asked to cache an empty response body.
	ErrEmptyBody = errors.New("empty response body")
)

// Manager stores raw Census API response bodies in Redis. The body is the
// stored value as-is; expiry is left to Redis.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a cache manager whose entries live for ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Get returns the cached body for key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) ([]byte, error) {
	body, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return body, nil
}

// Set stores body under key for the manager's TTL, replacing any previous body.
func (m *Manager) Set(ctx context.Context, key CacheKey, body []byte) error {
	if len(body) == 0 {
		return ErrEmptyBody
	}

	if err := m.redis.Set(ctx, key.String(), body, m.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(body)))
	return nil
}

// TTL returns how long the entry for key has left, or ErrCacheMiss.
func (m *Manager) TTL(ctx context.Context, key CacheKey) (time.Duration, error) {
	ttl, err := m.redis.PTTL(ctx, key.String()).Result()
	if err != nil {
		CacheErrors.WithLabelValues("ttl").Inc()
		return 0, fmt.Errorf("redis pttl: %w", err)
	}
	// -2 means no such key, -1 a key without expiry.
	if ttl == -2 {
		return 0, ErrCacheMiss
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
