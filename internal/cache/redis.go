// Package cache provides the Redis access layer: sessions and login throttling.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// poolSize covers request traffic plus the plan email worker, whose blocking
// XREADGROUP holds one connection for the whole block timeout.
const (
	poolSize     = 12
	minIdleConns = 2
	poolTimeout  = 4 * time.Second
	maxIdleTime  = 5 * time.Minute
)

// Cache holds the shared Redis client for sessions, rate limits and the
// plan email stream.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and fails fast when Redis is unreachable.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := clientOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func clientOptions(redisURL string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = poolSize
	opt.MinIdleConns = minIdleConns
	opt.PoolTimeout = poolTimeout
	opt.ConnMaxIdleTime = maxIdleTime
	return opt, nil
}

// Ping backs the /readyz redis check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client to the notify publisher and worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}
