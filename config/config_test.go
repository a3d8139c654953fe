package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "cache.db", cfg.DBFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.WakeInterval)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "config")

	original := Config{
		DataDir:      "/tmp/test-synccache",
		DBFile:       "session.db",
		LogLevel:     "debug",
		WakeInterval: 250 * time.Millisecond,
	}
	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\nlog_level = warn\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, DefaultConfig().DBFile, cfg.DBFile)
	assert.Equal(t, DefaultConfig().WakeInterval, cfg.WakeInterval)
}

func TestLoadConfigInvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	for _, body := range []string{
		"not a key value pair\n",
		"unknown_key = 1\n",
		"wake_interval = soon\n",
	} {
		require.NoError(t, os.WriteFile(path, []byte(body), 0600))
		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, ErrInvalidConfigLine, body)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"empty db file", func(c *Config) { c.DBFile = "" }, ErrEmptyDBFile},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
		{"zero wake interval", func(c *Config) { c.WakeInterval = 0 }, ErrInvalidWakeInterval},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, ValidateConfig(cfg), tc.wantErr)
		})
	}
}
