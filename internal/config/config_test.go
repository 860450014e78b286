package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RECIPEBOX_DATA_DIR", dir)
	t.Setenv("RECIPEBOX_BACKEND", "")
	t.Setenv("RECIPEBOX_LOG_LEVEL", "")
	t.Setenv("RECIPEBOX_IMAGE_MAX_WIDTH", "")

	cfg := Load()
	assert.Equal(t, "file", cfg.Backend)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "recipes", cfg.StorageKey)
	assert.Equal(t, filepath.Join(dir, "recipebox.db"), cfg.SQLitePath)
	assert.Equal(t, filepath.Join(dir, "recipebox.log"), cfg.LogFile)
	assert.Equal(t, 800, cfg.ImageMaxWidth)
	assert.Equal(t, 80, cfg.ImageQuality)
	assert.Equal(t, "ja", cfg.Locale)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "recipebox", cfg.SurrealDBNamespace)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECIPEBOX_BACKEND", "SQLite")
	t.Setenv("RECIPEBOX_IMAGE_MAX_WIDTH", "640")
	t.Setenv("RECIPEBOX_IMAGE_QUALITY", "not-a-number")
	t.Setenv("RECIPEBOX_LOG_LEVEL", "warning")
	t.Setenv("RECIPEBOX_S3_ENDPOINT", "http://localhost:9000")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 640, cfg.ImageMaxWidth)
	assert.Equal(t, 80, cfg.ImageQuality)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)

	opts := cfg.DBOptions(nil)
	assert.Equal(t, "sqlite", opts.Backend)
	assert.Equal(t, "http://localhost:9000", opts.S3.Endpoint)
	assert.Equal(t, cfg.SurrealDBURL, opts.Surreal.URL)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, Config{}.Location())
	assert.Equal(t, time.Local, Config{TimeZone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "UTC", Config{TimeZone: "UTC"}.Location().String())
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("recipe saved", "title", "Ramen")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "title=Ramen")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &entry))
	assert.Equal(t, "recipe saved", entry["msg"])
}

func TestSetupLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recipebox.log")
	logger, cleanup := SetupLogger(path, slog.LevelError)
	logger.Debug("to file only")
	require.NoError(t, cleanup())
	assert.FileExists(t, path)
}
