// Package logging provides structured logging with file rotation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mcncl/domtools/internal/errors"
)

// Config holds logging configuration.
type Config struct {
	Level      string `yaml:"level"`        // debug, info, warn, error
	FilePath   string `yaml:"file"`         // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`  // size before rotation
	MaxBackups int    `yaml:"max_backups"`  // rotated files kept
	MaxAgeDays int    `yaml:"max_age_days"` // age of rotated files kept
	Compress   bool   `yaml:"compress"`     // gzip rotated files
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	}
}

// Validate checks the level name.
func (c Config) Validate() error {
	if _, ok := ParseLevel(c.Level); !ok {
		return errors.NewArgumentError(fmt.Sprintf("unknown log level '%s' (expected debug, info, warn or error)", c.Level), nil)
	}
	return nil
}

// Setup builds a text logger writing to the rotating log file when one is
// configured and to stderr otherwise, and installs it as the slog default.
// The returned cleanup closes the log file.
func Setup(cfg Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level, _ := ParseLevel(cfg.Level)

	var writer io.Writer
	var cleanup func() error

	if cfg.FilePath != "" {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, errors.NewOutputError(fmt.Sprintf("failed to create log directory '%s'", dir), err)
		}

		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		writer = lj
		cleanup = lj.Close
	} else {
		writer = stderr
		cleanup = func() error { return nil }
	}

	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return logger, cleanup, nil
}

// ParseLevel maps a level name to its slog level. An empty name is info.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
