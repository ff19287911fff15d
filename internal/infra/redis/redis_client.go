package redis

import (
	"context"
	"time"

	"card-index-pipeline/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client wraps the raw go-redis client behind the handful of operations the
// pipeline needs: plain key commands for the rate-limit guard and stream
// commands for the durable job queue.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, expiration).Result()
}

func (c *Client) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	return c.cli.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result()
}

func (c *Client) XGroupCreateMkStream(ctx context.Context, stream, group string) error {
	return c.cli.XGroupCreateMkStream(ctx, stream, group, "0").Err()
}

func (c *Client) XReadGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]redis.XStream, error) {
	return c.cli.XReadGroup(ctx, args).Result()
}

func (c *Client) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return c.cli.XAck(ctx, stream, group, ids...).Err()
}

func (c *Client) Close() error { return c.cli.Close() }
