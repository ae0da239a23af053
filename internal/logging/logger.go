// Package logging configures runtime JSONL logging output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger rooted at the resolved state path.
// VOXTASK_LOG_LEVEL selects the minimum level (debug, info, warn, error).
func New() (Runtime, error) {
	path, err := resolveLogPath()
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: levelFromEnv(os.Getenv("VOXTASK_LOG_LEVEL"))})
	logger := slog.New(h).With("pid", os.Getpid())
	return Runtime{Logger: logger, Path: path, closer: f}, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func levelFromEnv(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// resolveLogPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxtask", "log.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "voxtask", "log.jsonl"), nil
}
