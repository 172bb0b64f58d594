package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis at addr and verifies the connection with a
// ping. Short timeouts keep a slow cache from slowing the request path.
func NewRedisClient(ctx context.Context, addr, password string) (*redisv9.Client, error) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cache.NewRedisClient: ping: %w", err)
	}

	return client, nil
}
