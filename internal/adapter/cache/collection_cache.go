package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-file-service/internal/domain/user"
)

// DefaultKey is the Redis key holding the serialized user collection.
const DefaultKey = "users:collection"

// CollectionCache defines caching operations for the whole user collection.
type CollectionCache interface {
	// Get returns the cached collection, or nil on a cache miss.
	Get(ctx context.Context) (domain.Collection, error)

	// Set stores the collection with the configured TTL.
	Set(ctx context.Context, users domain.Collection) error

	// SetIfAbsent stores the collection only when no entry exists and
	// reports whether it was stored.
	SetIfAbsent(ctx context.Context, users domain.Collection) (bool, error)

	// Invalidate removes the cached collection.
	Invalidate(ctx context.Context) error
}

// RedisCollectionCache implements CollectionCache using Redis as the backing store.
type RedisCollectionCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisCollectionCache creates a new Redis-backed collection cache.
func NewRedisCollectionCache(client *redis.Client, key string, ttl time.Duration, log *zap.Logger) *RedisCollectionCache {
	if key == "" {
		key = DefaultKey
	}
	return &RedisCollectionCache{
		client: client,
		key:    key,
		ttl:    ttl,
		log:    log,
	}
}

// Get retrieves the collection from Redis.
func (c *RedisCollectionCache) Get(ctx context.Context) (domain.Collection, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("key", c.key))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("key", c.key), zap.Error(err))
		return nil, err
	}

	users := domain.Collection{}
	if err := json.Unmarshal(data, &users); err != nil {
		c.log.Error("failed to unmarshal cached users", zap.String("key", c.key), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("key", c.key), zap.Int("count", len(users)))
	return users, nil
}

func (c *RedisCollectionCache) encode(users domain.Collection) ([]byte, error) {
	if users == nil {
		return nil, fmt.Errorf("cannot cache nil collection")
	}

	data, err := json.Marshal(users)
	if err != nil {
		c.log.Error("failed to marshal users for cache", zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Set stores the collection in Redis with TTL.
func (c *RedisCollectionCache) Set(ctx context.Context, users domain.Collection) error {
	data, err := c.encode(users)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.String("key", c.key), zap.Error(err))
		return err
	}

	c.log.Debug("cached users", zap.String("key", c.key), zap.Int("count", len(users)), zap.Duration("ttl", c.ttl))
	return nil
}

// SetIfAbsent stores the collection with SETNX so a fill from a stale read
// never replaces an entry written after a save.
func (c *RedisCollectionCache) SetIfAbsent(ctx context.Context, users domain.Collection) (bool, error) {
	data, err := c.encode(users)
	if err != nil {
		return false, err
	}

	stored, err := c.client.SetNX(ctx, c.key, data, c.ttl).Result()
	if err != nil {
		c.log.Error("failed to fill cache", zap.String("key", c.key), zap.Error(err))
		return false, err
	}

	c.log.Debug("filled cache", zap.String("key", c.key), zap.Bool("stored", stored), zap.Int("count", len(users)))
	return stored, nil
}

// Invalidate removes the collection from Redis.
func (c *RedisCollectionCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.log.Error("failed to delete from cache", zap.String("key", c.key), zap.Error(err))
		return err
	}

	c.log.Debug("invalidated cache", zap.String("key", c.key))
	return nil
}
