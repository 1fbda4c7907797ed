// Package cache holds the Redis-backed rate limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientName identifies the service in CLIENT LIST.
const clientName = "dotsalary"

// PoolConfig holds Redis connection pool limits.
type PoolConfig struct {
	PoolSize     int
	MinIdleConns int
}

// DefaultPoolConfig returns the pool limits used when none are configured.
// Rate limiting runs one script per request, so a small pool is enough.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{PoolSize: 10, MinIdleConns: 2}
}

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, poolCfg PoolConfig) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.ClientName = clientName
	opt.PoolSize = poolCfg.PoolSize
	opt.MinIdleConns = poolCfg.MinIdleConns
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	c := NewWithClient(redis.NewClient(opt))
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return c, nil
}

// NewWithClient wraps an existing client without checking connectivity.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}
