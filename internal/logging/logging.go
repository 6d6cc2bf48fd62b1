// Package logging installs the process-wide slog logger, optionally teed to a
// rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/talgya/firecontrol/internal/config"
)

// Setup builds a logger from c, installs it as the slog default and returns
// it with a closer for the log file (a no-op when no file is configured).
func Setup(c config.LogConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if strings.TrimSpace(c.File) != "" {
		lj := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    max(c.MaxSizeMB, 1),
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	logger := slog.New(NewHandler(out, c))
	slog.SetDefault(logger)
	return logger, closer
}

// NewHandler returns a text or JSON handler at the configured level.
func NewHandler(w io.Writer, c config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	if strings.ToLower(c.Format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a config level name to a slog level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
