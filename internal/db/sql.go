package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLKV stores slots in a two-column table. The same type serves SQLite and
// PostgreSQL; only the statements differ.
type SQLKV struct {
	conn    *sql.DB
	getStmt string
	setStmt string
}

// NewSQLiteKV opens or creates an SQLite database at path.
func NewSQLiteKV(path string) (*SQLKV, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode so readers never block on the single writer.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLKV{
		conn:    conn,
		getStmt: "SELECT value FROM kv WHERE key = ?",
		setStmt: "INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
	}, nil
}

// NewPostgresKV connects to PostgreSQL, retrying the initial ping with
// exponential backoff, and creates the slot table.
func NewPostgresKV(ctx context.Context, dsn string) (*SQLKV, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := retryConnect(ctx, func() error { return conn.PingContext(ctx) }); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := conn.ExecContext(ctx, postgresSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLKV{
		conn:    conn,
		getStmt: "SELECT value FROM kv WHERE key = $1",
		setStmt: "INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at",
	}, nil
}

// Get returns the value stored under key.
func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, s.getStmt, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key in a single statement.
func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.conn.ExecContext(ctx, s.setStmt, key, value); err != nil {
		if isFullError(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLKV) Close() error {
	return s.conn.Close()
}

// isFullError matches SQLITE_FULL and PostgreSQL disk_full (53100) messages.
func isFullError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLSTATE 53100")
}

// retryConnect runs op with exponential backoff for up to five attempts.
func retryConnect(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(op, b)
}
