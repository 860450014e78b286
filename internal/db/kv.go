// Package db provides the key-value storage backends the recipe store
// persists its collection to.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// KV is a persistent string slot store. Get reports ok=false when the key
// has never been written. Set replaces the whole value; readers never see a
// partially written value.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"
	BackendSurrealDB = "surrealdb"
	BackendS3        = "s3"
	BackendMemory    = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// file
	Dir string
	// sqlite
	SQLitePath string
	// postgres
	PostgresDSN string
	// redis
	RedisURL string
	// surrealdb
	Surreal Config
	// s3
	S3 S3Config

	Logger *slog.Logger
}

// Open connects to the backend named in opts.Backend.
func Open(ctx context.Context, opts Options) (KV, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileKV(opts.Dir)
	case BackendSQLite:
		return NewSQLiteKV(opts.SQLitePath)
	case BackendPostgres:
		return NewPostgresKV(ctx, opts.PostgresDSN)
	case BackendRedis:
		return NewRedisKV(ctx, opts.RedisURL)
	case BackendSurrealDB:
		return NewClient(ctx, opts.Surreal, log)
	case BackendS3:
		return NewS3KV(ctx, opts.S3)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
