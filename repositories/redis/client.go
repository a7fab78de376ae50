package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/upb/entitybus/config"
)

// Client wraps the go-redis client with health checking capabilities.
type Client struct {
	*redis.Client
}

// NewClient creates a Redis client from the blob configuration and verifies the connection
func NewClient(ctx context.Context, cfg config.BlobConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// HealthCheck checks if the Redis connection is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
