// Package cache holds short-lived upstream responses keyed by request.
// Values are stored as JSON so the memory and Redis stores behave the same.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Cache interface {
	// Get decodes the value for key into dest. found is false on a miss or
	// an expired entry.
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// InvalidateAll drops every entry owned by this cache.
	InvalidateAll(ctx context.Context) error
	Close() error
}

type Options struct {
	Backend   string
	RedisAddr string
	RedisDB   int
	Password  string
	Prefix    string
}

// New builds the configured backend. An empty backend means memory.
func New(opts Options) (Cache, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "memory", "mem":
		return NewMemory(), nil
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("cache: redis backend requires an address")
		}
		return NewRedis(opts.RedisAddr, opts.Password, opts.RedisDB, opts.Prefix), nil
	}
	return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
}
