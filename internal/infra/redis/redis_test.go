package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	if opts.ClientName != clientName || opts.PoolSize != poolSize || opts.ReadTimeout != ioTimeout {
		t.Fatalf("options = name %q pool %d read %s, want defaults", opts.ClientName, opts.PoolSize, opts.ReadTimeout)
	}
}

func TestApplyDefaultsKeepsURLSettings(t *testing.T) {
	t.Parallel()

	opts, err := redis.ParseURL("redis://localhost:6379/2?pool_size=16&client_name=ops")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	applyDefaults(opts)

	if opts.PoolSize != 16 || opts.ClientName != "ops" || opts.DB != 2 {
		t.Fatalf("options = pool %d name %q db %d, want URL values kept", opts.PoolSize, opts.ClientName, opts.DB)
	}
	if opts.MinIdleConns != minIdleConns {
		t.Fatalf("min idle = %d, want %d", opts.MinIdleConns, minIdleConns)
	}
}

func TestNewRedisInvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := NewRedis(context.Background(), "not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(context.Background(), "redis://"+addr+"/0"); err == nil {
		t.Fatal("expected ping error")
	}
}
