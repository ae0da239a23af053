// Package indicator handles desktop notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voxtask/internal/config"
)

const (
	persistentTimeoutMS = 300000
	summaryTimeoutMS    = 3000
)

// Notifier is the concrete indicator used by runtime sessions. Session-state
// bubbles replace one another through a single notification ID.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	notify  func(ctx context.Context, appName string, replaceID uint32, text string, timeoutMS int) (uint32, error)
	dismiss func(ctx context.Context, id uint32) error
	cue     func(cueKind, config.IndicatorConfig) error

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		notify:   desktopNotify,
		dismiss:  desktopDismiss,
		cue:      emitCue,
	}
}

// ShowRecording signals capture start and emits the start cue.
func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	n.show(ctx, persistentTimeoutMS, n.messages.recording)
}

// ShowPaused signals that capture is paused and emits the pause cue.
func (n *Notifier) ShowPaused(ctx context.Context) {
	n.playCue(cuePause)
	n.show(ctx, persistentTimeoutMS, n.messages.paused)
}

// ShowProcessing signals the post-capture transcription and splitting state.
func (n *Notifier) ShowProcessing(ctx context.Context) {
	n.show(ctx, persistentTimeoutMS, n.messages.processing)
}

// ShowError displays an error message, falling back to the generic text.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.show(ctx, timeout, text)
	n.release()
}

// ShowSummary replaces the session bubble with a short-lived result message.
func (n *Notifier) ShowSummary(ctx context.Context, text string) {
	n.show(ctx, summaryTimeoutMS, text)
	n.release()
}

// CueStop emits the stop cue.
func (n *Notifier) CueStop(context.Context) {
	n.playCue(cueStop)
}

// CueComplete emits the successful-commit cue.
func (n *Notifier) CueComplete(context.Context) {
	n.playCue(cueComplete)
}

// CueCancel emits the cancel cue.
func (n *Notifier) CueCancel(context.Context) {
	n.playCue(cueCancel)
}

// Hide closes the current session bubble, if any.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.dismiss(ctx, id)
	})
}

// show sends or replaces the session bubble and stores its ID.
func (n *Notifier) show(ctx context.Context, timeoutMS int, text string) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		n.mu.Lock()
		replaceID := n.notificationID
		n.mu.Unlock()

		id, err := n.notify(ctx, n.appName(), replaceID, text, timeoutMS)
		if err != nil {
			return err
		}

		n.mu.Lock()
		n.notificationID = id
		n.mu.Unlock()
		return nil
	})
}

// release forgets the current ID so a later Hide leaves a timed bubble visible.
func (n *Notifier) release() {
	n.mu.Lock()
	n.notificationID = 0
	n.mu.Unlock()
}

func (n *Notifier) appName() string {
	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		return "voxtask"
	}
	return appName
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
