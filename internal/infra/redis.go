package infra

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// NewEmbeddedRedis starts an in-process Redis for development runs where no
// REDIS_URL is configured. State is lost on exit, which is fine for OTP
// challenges. The returned stop function tears the instance down.
func NewEmbeddedRedis() (*redis.Client, func(), error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start embedded redis: %w", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	stop := func() {
		client.Close()
		mr.Close()
	}
	return client, stop, nil
}
