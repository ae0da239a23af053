package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/voxtask/internal/audio"
	"github.com/rbright/voxtask/internal/config"
	"github.com/rbright/voxtask/internal/indicator"
	"github.com/rbright/voxtask/internal/ipc"
	"github.com/rbright/voxtask/internal/output"
	"github.com/rbright/voxtask/internal/session"
)

// commandSession forwards toggle to a running owner, or becomes the owner and
// runs one capture session in mode.
func (r Runner) commandSession(ctx context.Context, cfg config.Config, logger *slog.Logger, mode session.Mode) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	if code, forwarded := r.forwardToggle(ctx, socketPath); forwarded {
		return code
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(path string) {
			logger.Warn("removed stale session socket", "path", path)
		},
	})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			if code, forwarded := r.forwardToggle(ctx, socketPath); forwarded {
				return code
			}
		}
		return r.fail(err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, cleanup, err := r.buildController(cfg, logger, mode)
	if err != nil {
		return r.fail(err)
	}
	defer cleanup()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		return r.fail(result.Err)
	}

	switch result.Mode {
	case session.ModeText:
		if text := strings.TrimSpace(result.Transcript); text != "" {
			fmt.Fprintln(r.Stdout, text)
		}
	default:
		fmt.Fprintf(r.Stdout, "added %d task(s)\n", result.Committed)
		for _, d := range result.Tasks {
			fmt.Fprintf(r.Stdout, "  %s\n", d.Title)
		}
	}
	return 0
}

func (r Runner) forwardToggle(ctx context.Context, socketPath string) (int, bool) {
	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandToggle)
	if !handled {
		return 0, false
	}
	if err != nil {
		return r.fail(err), true
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0, true
}

// buildController wires recorder, reconciler, committer, and notifier for one owner session.
func (r Runner) buildController(cfg config.Config, logger *slog.Logger, mode session.Mode) (*session.Controller, func(), error) {
	recordingDir, err := config.RecordingDir(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	processor, cleanup, err := r.newProcessor(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	recorder := audio.NewRecorder(audio.RecorderConfig{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Dir:      recordingDir,
	}, logger)
	committer := output.NewCommitter(cfg.Output, store, logger)
	notifier := indicator.New(cfg.Indicator, logger)

	controller := session.NewController(logger, recorder, processor, committer, notifier, session.Options{
		Mode:          mode,
		KeepRecording: cfg.Recording.Keep,
		SingleTask:    cfg.Output.SingleTask,
	})
	return controller, cleanup, nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"mode", result.Mode,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.AudioDevice,
		"audio_ms", result.Duration.Milliseconds(),
		"bytes_captured", result.BytesCaptured,
		"transcript_length", len(result.Transcript),
		"task_count", len(result.Tasks),
		"committed", result.Committed,
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
