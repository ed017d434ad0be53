package store

import (
	"context"
	"fmt"

	"globalgigs/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type OpenOptions struct {
	Backend     string
	Redis       *goredis.Client
	PostgresDSN string
	Indexes     []Index
	Retry       RetryConfig
	Logger      *logger.Logger
}

// Open builds the configured backend wrapped in the read retry decorator.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	var inner Store
	switch opts.Backend {
	case BackendRedis, "":
		if opts.Redis == nil {
			return nil, fmt.Errorf("store: redis backend needs a client")
		}
		inner = NewRedisStore(opts.Redis, WithIndexes(opts.Indexes...), WithRedisLogger(opts.Logger))
	case BackendPostgres:
		pg, err := NewPostgresStore(ctx, opts.PostgresDSN, opts.Logger)
		if err != nil {
			return nil, err
		}
		inner = pg
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}

	if err := inner.Ping(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}
	return NewRetrying(inner, opts.Retry, opts.Logger), nil
}
