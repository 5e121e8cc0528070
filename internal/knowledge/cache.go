package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache abstracts the Redis operations used by the read-through store so
// tests can substitute a stub.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache is a concrete implementation backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set writes a value to Redis.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a cached value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// CachedStore wraps a Store with a read-through cache. Cache failures never
// fail a lookup; they fall through to the inner store.
type CachedStore struct {
	inner  Store
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wires a read-through cache in front of inner.
func NewCachedStore(inner Store, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("knowledge_cache"),
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("condition:%s", id)
}

// FindByIDs serves records from the cache where possible and fetches the rest
// from the inner store in one batched call.
func (s *CachedStore) FindByIDs(ctx context.Context, ids []string) ([]ConditionRecord, error) {
	records := make([]ConditionRecord, 0, len(ids))
	var misses []string

	for _, id := range ids {
		cached, err := s.cache.Get(ctx, cacheKey(id))
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				s.logger.Warn("cache read failed", zap.String("id", id), zap.Error(err))
			}
			misses = append(misses, id)
			continue
		}
		var record ConditionRecord
		if err := json.Unmarshal([]byte(cached), &record); err != nil {
			s.logger.Warn("cached record is corrupt", zap.String("id", id), zap.Error(err))
			misses = append(misses, id)
			continue
		}
		records = append(records, record)
	}

	if len(misses) == 0 {
		return records, nil
	}

	fetched, err := s.inner.FindByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}

	for _, record := range fetched {
		serialized, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if err := s.cache.Set(ctx, cacheKey(record.ID), string(serialized), s.ttl); err != nil {
			s.logger.Warn("cache write failed", zap.String("id", record.ID), zap.Error(err))
		}
	}

	return append(records, fetched...), nil
}
