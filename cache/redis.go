package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache is the distributed backend. All five operations are exact;
// the cross-cutting invalidations use pattern-based key enumeration,
// which is an accepted scaling limit at very large user counts.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, userID, appID string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, entryKey(userID, appID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var codes []string
	if err := json.Unmarshal([]byte(data), &codes); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		c.client.Del(ctx, entryKey(userID, appID))
		return nil, false, nil
	}
	return codes, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID, appID string, codes []string) error {
	data, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("failed to marshal permission set: %w", err)
	}
	if err := c.client.Set(ctx, entryKey(userID, appID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateUser(ctx context.Context, userID, appID string) error {
	if err := c.client.Del(ctx, entryKey(userID, appID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateUserAll(ctx context.Context, userID string) error {
	return c.deleteByPattern(ctx, fmt.Sprintf("perms:%s:*", userID))
}

func (c *RedisCache) InvalidateApplication(ctx context.Context, appID string) error {
	return c.deleteByPattern(ctx, fmt.Sprintf("perms:*:%s", appID))
}

func (c *RedisCache) deleteByPattern(ctx context.Context, pattern string) error {
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("redis key scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	c.logger.Debug("cache entries invalidated",
		zap.String("pattern", pattern),
		zap.Int("keys", len(keys)))
	return nil
}
