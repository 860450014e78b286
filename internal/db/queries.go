package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

type kvRecord struct {
	Value string `json:"value"`
}

// Get returns the value stored in the kv record named key.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	results, err := surrealdb.Query[[]kvRecord](ctx, c.db, `
		SELECT value FROM type::record("kv", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", false, nil
	}
	return (*results)[0].Result[0].Value, true, nil
}

// Set upserts the kv record named key. A single UPSERT replaces the value
// atomically.
func (c *Client) Set(ctx context.Context, key, value string) error {
	_, err := surrealdb.Query[[]kvRecord](ctx, c.db, `
		UPSERT type::record("kv", $key) SET value = $value, updated = time::now()
	`, map[string]any{"key": key, "value": value})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, wrapQueryError(err))
	}
	return nil
}

// Delete removes the kv record named key. Used by tests to reset state.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("kv", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, wrapQueryError(err))
	}
	return nil
}
