package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

const baselineKeyPrefix = "notifications:baseline:"

// BaselineRepository keeps the per-session notification baseline in Redis. Entries
// expire with the session so abandoned sessions do not accumulate.
type BaselineRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBaselineRepository constructs a Redis backed baseline store.
func NewBaselineRepository(client *redis.Client, ttl time.Duration) *BaselineRepository {
	return &BaselineRepository{client: client, ttl: ttl}
}

// Get returns the stored baseline or appErrors.ErrCacheMiss.
func (r *BaselineRepository) Get(ctx context.Context, sessionKey string) (int, error) {
	if r.client == nil {
		return 0, appErrors.ErrCacheMiss
	}
	key := baselineKeyPrefix + sessionKey
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, appErrors.ErrCacheMiss
		}
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse baseline for %s: %w", key, err)
	}
	return value, nil
}

// Set overwrites the baseline and refreshes its expiry.
func (r *BaselineRepository) Set(ctx context.Context, sessionKey string, value int) error {
	if r.client == nil {
		return nil
	}
	key := baselineKeyPrefix + sessionKey
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *BaselineRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// MemoryBaselineRepository is the in-process baseline store used when Redis is disabled.
type MemoryBaselineRepository struct {
	cache *gocache.Cache
}

// NewMemoryBaselineRepository builds a store whose entries expire after ttl.
func NewMemoryBaselineRepository(ttl time.Duration) *MemoryBaselineRepository {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := ttl
	if cleanup == gocache.NoExpiration || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &MemoryBaselineRepository{cache: gocache.New(ttl, cleanup)}
}

// Get returns the stored baseline or appErrors.ErrCacheMiss.
func (r *MemoryBaselineRepository) Get(_ context.Context, sessionKey string) (int, error) {
	value, ok := r.cache.Get(baselineKeyPrefix + sessionKey)
	if !ok {
		return 0, appErrors.ErrCacheMiss
	}
	count, ok := value.(int)
	if !ok {
		return 0, appErrors.ErrCacheMiss
	}
	return count, nil
}

// Set overwrites the baseline and refreshes its expiry.
func (r *MemoryBaselineRepository) Set(_ context.Context, sessionKey string, value int) error {
	r.cache.SetDefault(baselineKeyPrefix+sessionKey, value)
	return nil
}
