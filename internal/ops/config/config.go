// Package config loads the operations service's runtime configuration from
// environment variables. There is no file-based config loader and no
// wizard here: the config source is a thin external collaborator, so the
// only supported source is the process environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the operations service's runtime configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8081".
	ListenAddr string

	// DefaultCommandTimeout is used for execute_command when the caller
	// doesn't supply timeout_seconds.
	DefaultCommandTimeout time.Duration

	// SearchMaxDepth bounds recursive grep traversal.
	SearchMaxDepth int

	// ReadChunkRunes is the window size for streaming read_file.
	ReadChunkRunes int

	LogLevel string
}

// FromEnv builds a Config from the process environment, applying defaults
// where a variable is unset.
func FromEnv() Config {
	return Config{
		ListenAddr:            getString("OPS_LISTEN_ADDR", ":8081"),
		DefaultCommandTimeout: getDuration("OPS_COMMAND_TIMEOUT_SECONDS", 300*time.Second),
		SearchMaxDepth:        getInt("OPS_SEARCH_MAX_DEPTH", 10),
		ReadChunkRunes:        getInt("OPS_READ_CHUNK_RUNES", 1024),
		LogLevel:              getString("OPS_LOG_LEVEL", "info"),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
