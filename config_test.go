package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Chapter:     1,
		Docs:        ".",
		Speed:       1,
		Volume:      1,
		AutoAdvance: true,
		Tick:        200 * time.Millisecond,
		Style:       "auto",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"chapter too low", func(c *Config) { c.Chapter = 0 }, "chapter must be at least 1"},
		{"chapter too high", func(c *Config) { c.Chapter = 101 }, "chapter must not exceed 100"},
		{"no docs", func(c *Config) { c.Docs = "" }, "docs is required"},
		{"slow", func(c *Config) { c.Speed = 0.25 }, "speed must be at least 0.5"},
		{"fast", func(c *Config) { c.Speed = 3 }, "speed must not exceed 2"},
		{"loud", func(c *Config) { c.Volume = 1.5 }, "volume must not exceed 1"},
		{"tick", func(c *Config) { c.Tick = time.Millisecond }, "tick must be at least"},
		{"cache", func(c *Config) { c.CacheSize = -1 }, "cache_size must be at least 0"},
		{"disk cache", func(c *Config) { c.DiskCache = -1 }, "disk_cache must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateReportsAll(t *testing.T) {
	c := validConfig()
	c.Chapter = 0
	c.Volume = -1

	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, "invalid configuration: chapter must be at least 1; volume must be at least 0", err.Error())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, filepath.Join(home, "narayaneeyam"), expandPath("~/narayaneeyam"))
	assert.Equal(t, "docs", expandPath("docs"))
	assert.Equal(t, "https://example.org/~site", expandPath("https://example.org/~site"))
}

func TestValidateStyle(t *testing.T) {
	assert.NoError(t, validateStyle("auto"))
	assert.NoError(t, validateStyle("dark"))
	assert.Error(t, validateStyle(filepath.Join(t.TempDir(), "missing.json")))

	path := filepath.Join(t.TempDir(), "style.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	assert.NoError(t, validateStyle(path))
}
