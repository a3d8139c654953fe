// Package config loads and validates the cache configuration from a plain
// key=value file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the cache layer's configuration.
type Config struct {
	// DataDir is where the database, salt, and log files live.
	DataDir string

	// DBFile is the database filename inside DataDir.
	DBFile string

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// WakeInterval is how often the query worker rechecks its queue even
	// without a wake signal.
	WakeInterval time.Duration
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:      filepath.Join(home, ".synccache"),
		DBFile:       "cache.db",
		LogLevel:     "info",
		WakeInterval: 100 * time.Millisecond,
	}
}

// LoadConfig reads a config file. Missing keys keep their defaults; blank
// lines and lines starting with '#' are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, ErrConfigNotFound
		}
		return cfg, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: %q", ErrInvalidConfigLine, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "data_dir":
			cfg.DataDir = value
		case "db_file":
			cfg.DBFile = value
		case "log_level":
			cfg.LogLevel = value
		case "wake_interval":
			d, err := time.ParseDuration(value)
			if err != nil {
				return cfg, fmt.Errorf("%w: wake_interval %q", ErrInvalidConfigLine, value)
			}
			cfg.WakeInterval = d
		default:
			return cfg, fmt.Errorf("%w: unknown key %q", ErrInvalidConfigLine, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration, creating parent directories as
// needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "data_dir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "db_file = %s\n", cfg.DBFile)
	fmt.Fprintf(&b, "log_level = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "wake_interval = %s\n", cfg.WakeInterval)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
