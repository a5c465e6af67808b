package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// Allow counts one event under key and reports whether the count is still
// within limit for the window. The window starts on the first event.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := c.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := c.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count <= int64(limit), nil
}

// Reset clears the counter for key.
func (c *Client) Reset(ctx context.Context, key string) error {
	return c.Del(ctx, key).Err()
}

func LoginAttemptsKey(ip string) string {
	return fmt.Sprintf("login-attempts:%s", ip)
}

func CodeRequestsKey(userID string) string {
	return fmt.Sprintf("code-requests:%s", userID)
}
