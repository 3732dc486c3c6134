package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// RESULT CACHE
// =============================================================================

// ResultCache stores computed reports. Keys embed the ledger revision, so
// entries never need explicit invalidation.
type ResultCache interface {
	// Get decodes the entry into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// RedisCache is a ResultCache backed by Redis with JSON values.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ ResultCache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "stock-engine:"}
}

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, b, c.ttl).Err()
}
