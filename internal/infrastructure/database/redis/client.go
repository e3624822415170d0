// Package redis hosts the Redis client and the ranked-list cache that
// serves all ranking reads.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
)

// Client wraps a go-redis client with lifecycle management.
type Client struct {
	rdb    redis.UniversalClient
	cfg    config.RedisConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects and verifies the Redis instance described by cfg.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis connection failed")
	}

	log.Info("connected to Redis", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))

	return &Client{rdb: rdb, cfg: cfg, logger: log}, nil
}

// NewClientWithRedis wraps an existing go-redis client (for testing).
func NewClientWithRedis(rdb redis.UniversalClient, cfg config.RedisConfig, log logging.Logger) *Client {
	return &Client{rdb: rdb, cfg: cfg, logger: log}
}

// Redis returns the underlying client.
func (c *Client) Redis() redis.UniversalClient {
	return c.rdb
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New(errors.ErrCodeCacheError, "redis client is closed")
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis health check failed")
	}
	return nil
}

// Close shuts the connection pool down; safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("failed to close Redis client", logging.Err(err))
		return err
	}
	c.logger.Info("closed Redis client")
	return nil
}
