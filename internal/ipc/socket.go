package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned by Acquire when a live owner answers on the socket.
var ErrAlreadyRunning = errors.New("voxtask session already running")

const socketName = "voxtask.sock"

// RuntimeSocketPath resolves the owner socket under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// AcquireOptions tunes how Acquire treats an existing socket file.
type AcquireOptions struct {
	// ProbeTimeout bounds the status roundtrip used to detect a live owner.
	ProbeTimeout time.Duration
	// Retries is the number of extra listen attempts after unlinking a stale socket.
	Retries int
	// OnStale is called with the path after a stale socket file is removed.
	OnStale func(path string)
}

// Acquire makes the caller the session owner by listening on path. A socket
// file nobody answers on is unlinked and the listen retried with backoff.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		if err := clearStale(ctx, path, opts); err != nil {
			return nil, err
		}
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, opts.Retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}

// clearStale removes path unless an owner answers on it. An inconclusive probe
// leaves the file in place.
func clearStale(ctx context.Context, path string, opts AcquireOptions) error {
	alive, err := Probe(ctx, path, opts.ProbeTimeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	if opts.OnStale != nil {
		opts.OnStale(path)
	}
	return nil
}
