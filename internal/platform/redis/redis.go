package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options selects a Redis server and logical database.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Open creates a client and pings it to validate the connection. The same
// client backs the storage adapter and the event stream consumer.
func Open(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return c, nil
}
