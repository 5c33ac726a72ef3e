package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName   = "message-scheduler"
	pingTimeout  = 3 * time.Second
	ioTimeout    = 2 * time.Second
	poolSize     = 4
	minIdleConns = 1
)

// NewRedis connects the store client. Settings given in the URL win over the
// defaults sized for a single operator.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	applyDefaults(opts)

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

func applyDefaults(opts *redis.Options) {
	if opts.ClientName == "" {
		opts.ClientName = clientName
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = poolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = minIdleConns
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = ioTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = ioTimeout
	}
}
