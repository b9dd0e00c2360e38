package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps debug|info|warn|error; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetupLogger writes text to stderr and, when file is set, JSON to file.
// The returned func closes the file.
func SetupLogger(level, file string) (*slog.Logger, func() error) {
	lvl := ParseLevel(level)
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	if file == "" {
		return slog.New(stderr), func() error { return nil }
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(stderr)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", file)
		return logger, func() error { return nil }
	}
	return newFanout(os.Stderr, f, lvl), f.Close
}

func newFanout(stderr, file io.Writer, lvl slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl}),
	))
}
