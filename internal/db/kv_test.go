package db_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runKVContract checks the behavior every backend must share.
func runKVContract(t *testing.T, kv db.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		v, ok, err := kv.Get(ctx, "never-written")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "recipes", `[{"title":"カレー"}]`))
		v, ok, err := kv.Get(ctx, "recipes")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"title":"カレー"}]`, v)
	})

	t.Run("overwrite replaces whole value", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "recipes", strings.Repeat("x", 4096)))
		require.NoError(t, kv.Set(ctx, "recipes", "[]"))
		v, ok, err := kv.Get(ctx, "recipes")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "[]", v)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "a", "1"))
		require.NoError(t, kv.Set(ctx, "b", "2"))
		va, _, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		vb, _, err := kv.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "1", va)
		assert.Equal(t, "2", vb)
	})
}

func TestMemoryKV(t *testing.T) {
	kv := db.NewMemoryKV()
	runKVContract(t, kv)

	require.NoError(t, kv.Close())
	_, _, err := kv.Get(context.Background(), "recipes")
	assert.ErrorIs(t, err, db.ErrClosed)
}

func TestMemoryKVFailWrites(t *testing.T) {
	kv := db.NewMemoryKV()
	kv.FailWrites = db.ErrQuotaExceeded

	err := kv.Set(context.Background(), "recipes", "[]")
	assert.ErrorIs(t, err, db.ErrQuotaExceeded)

	_, ok, err := kv.Get(context.Background(), "recipes")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileKV(t *testing.T) {
	dir := t.TempDir()
	kv, err := db.NewFileKV(filepath.Join(dir, "nested", "data"))
	require.NoError(t, err)
	defer kv.Close()

	runKVContract(t, kv)

	// No temp files are left behind after writes.
	entries, err := os.ReadDir(kv.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := db.NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "recipes", `[1]`))
	require.NoError(t, first.Close())

	second, err := db.NewFileKV(dir)
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, "recipes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1]`, v)
}

func TestFileKVRejectsInvalidKeys(t *testing.T) {
	kv, err := db.NewFileKV(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, kv.Set(context.Background(), key, "x"))
		})
	}
}

func TestFileKVClosed(t *testing.T) {
	kv, err := db.NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	assert.ErrorIs(t, kv.Set(context.Background(), "recipes", "[]"), db.ErrClosed)
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.db")
	kv, err := db.NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	runKVContract(t, kv)
}

func TestSQLiteKVPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.db")
	ctx := context.Background()

	first, err := db.NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "recipes", `[2]`))
	require.NoError(t, first.Close())

	second, err := db.NewSQLiteKV(path)
	require.NoError(t, err)
	defer second.Close()
	v, ok, err := second.Get(ctx, "recipes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[2]`, v)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    db.Options
		wantErr error
	}{
		{name: "default is file", opts: db.Options{Dir: dir}},
		{name: "file", opts: db.Options{Backend: "file", Dir: dir}},
		{name: "sqlite", opts: db.Options{Backend: "SQLite", SQLitePath: filepath.Join(dir, "kv.db")}},
		{name: "memory", opts: db.Options{Backend: "memory"}},
		{name: "unknown", opts: db.Options{Backend: "floppy"}, wantErr: db.ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := db.Open(ctx, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer kv.Close()
			require.NoError(t, kv.Set(ctx, "probe", "ok"))
		})
	}
}
