// Package redis holds the connection used for per-post mutation locks.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
)

type Client struct {
	*goredis.Client
}

func NewClient(addr, password string, db int) *Client {
	return &Client{
		Client: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  dialTimeout,
			ReadTimeout:  ioTimeout,
			WriteTimeout: ioTimeout,
		}),
	}
}

// HealthCheck fails when the lock backend cannot be reached.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "storage.redis.HealthCheck"

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %s: %w", op, c.Options().Addr, err)
	}

	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
