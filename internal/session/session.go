// Package session coordinates one capture-to-commit lifecycle and its IPC actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voxtask/internal/audio"
	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/fsm"
	"github.com/rbright/voxtask/internal/ipc"
	"github.com/rbright/voxtask/internal/logging"
	"github.com/rbright/voxtask/internal/reconcile"
)

// Mode selects what a session produces from its recording.
type Mode string

const (
	ModeTasks Mode = "tasks"
	ModeText  Mode = "text"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State         fsm.State
	Mode          Mode
	Transcript    string
	Tasks         []draft.Draft
	Committed     int
	Cancelled     bool
	Err           error
	AudioDevice   string
	BytesCaptured int64
	Duration      time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowPaused(context.Context)
	ShowProcessing(context.Context)
	ShowError(context.Context, string)
	ShowSummary(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)       {}
func (noopIndicator) ShowPaused(context.Context)          {}
func (noopIndicator) ShowProcessing(context.Context)      {}
func (noopIndicator) ShowError(context.Context, string)   {}
func (noopIndicator) ShowSummary(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)             {}
func (noopIndicator) CueComplete(context.Context)         {}
func (noopIndicator) CueCancel(context.Context)           {}
func (noopIndicator) Hide(context.Context)                {}

// Options tunes one controller.
type Options struct {
	Mode Mode
	// KeepRecording leaves the WAV file on disk after processing.
	KeepRecording bool
	// SingleTask commits the transcript as one task in ModeTasks.
	SingleTask bool
}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger    *slog.Logger
	recorder  Recorder
	reconcile Reconciler
	commit    Committer
	indicator Indicator
	opts      Options

	mu     sync.RWMutex
	state  fsm.State
	paused bool

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	recorder Recorder,
	reconciler Reconciler,
	committer Committer,
	indicator Indicator,
	opts Options,
) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	if recorder == nil {
		recorder = unavailableRecorder{}
	}
	if committer == nil {
		committer = discardCommitter{}
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if opts.Mode == "" {
		opts.Mode = ModeTasks
	}

	return &Controller{
		logger:    logger,
		recorder:  recorder,
		reconcile: reconciler,
		commit:    committer,
		indicator: indicator,
		opts:      opts,
		state:     fsm.StateIdle,
		actions:   make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Paused reports whether capture is currently paused.
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one owner lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) (result Result) {
	result = Result{Mode: c.opts.Mode, StartedAt: time.Now()}
	defer func() {
		result.State = c.State()
		result.FinishedAt = time.Now()
	}()

	if c.reconcile == nil {
		result.Err = errors.New("session has no reconciler")
		return result
	}
	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return result
	}

	c.indicator.ShowRecording(ctx)

	if err := c.recorder.Start(ctx); err != nil {
		c.indicator.ShowError(ctx, "Unable to start recording")
		c.toErrorAndReset()
		result.Err = err
		return result
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	var a action
	select {
	case <-ctx.Done():
		_ = c.recorder.Cancel(context.Background())
		c.indicator.CueCancel(context.Background())
		c.indicator.ShowError(context.Background(), "Cancelled")
		c.toErrorAndReset()
		result.Err = ctx.Err()
		return result
	case a = <-c.actions:
	}

	switch a {
	case actionCancel:
		_ = c.recorder.Cancel(context.Background())
		c.indicator.CueCancel(context.Background())
		_ = c.transition(fsm.EventCancel)
		result.Cancelled = true
		return result
	case actionStop:
		c.process(ctx, &result)
		return result
	default:
		c.toErrorAndReset()
		result.Err = fmt.Errorf("unknown action %d", a)
		return result
	}
}

// process stops capture, reconciles the recording, and commits the output.
func (c *Controller) process(ctx context.Context, result *Result) {
	if err := c.transition(fsm.EventStop); err != nil {
		c.toErrorAndReset()
		result.Err = err
		return
	}
	c.indicator.ShowProcessing(ctx)

	rec, err := c.recorder.Stop(ctx)
	c.indicator.CueStop(context.Background())
	result.AudioDevice = audio.Describe(rec.Device)
	result.BytesCaptured = rec.Bytes
	result.Duration = rec.Duration
	if err != nil {
		c.fail(result, err, "Recording failed")
		return
	}
	if !c.opts.KeepRecording {
		defer func() {
			if err := audio.Discard(rec); err != nil {
				c.logger.Warn("discard recording failed", "error", err.Error())
			}
		}()
	}

	switch c.opts.Mode {
	case ModeText:
		text, err := c.reconcile.ProcessAudioToText(ctx, rec.Handle)
		result.Transcript = text
		if err != nil {
			c.fail(result, err, failureMessage(err))
			return
		}
		if err := c.commit.CommitText(ctx, text); err != nil {
			c.fail(result, err, "Output dispatch failed")
			return
		}
		c.reconcile.ClearResults()
		c.indicator.CueComplete(context.Background())
		c.indicator.ShowSummary(context.Background(), "Transcript ready")
	default:
		out, err := c.reconcile.ProcessAudioToTasks(ctx, rec.Handle)
		result.Transcript = out.OriginalText
		result.Tasks = out.SuggestedTasks
		if err != nil {
			c.fail(result, err, failureMessage(err))
			return
		}
		if err := c.transition(fsm.EventTranscribed); err != nil {
			c.toErrorAndReset()
			result.Err = err
			return
		}
		var added int
		if c.opts.SingleTask {
			result.Tasks = []draft.Draft{{Title: strings.TrimSpace(out.OriginalText)}}
			added, err = c.commit.CommitSingle(ctx, out.OriginalText)
		} else {
			added, err = c.commit.CommitTasks(ctx, out.SuggestedTasks)
		}
		result.Committed = added
		if err != nil {
			c.fail(result, err, "Saving tasks failed")
			return
		}
		c.reconcile.ClearResults()
		c.indicator.CueComplete(context.Background())
		c.indicator.ShowSummary(context.Background(), taskSummary(added))
	}

	if err := c.transition(fsm.EventDone); err != nil {
		result.Err = err
	}
}

// TogglePause pauses or resumes capture while recording.
func (c *Controller) TogglePause() (bool, error) {
	if state := c.State(); state != fsm.StateRecording {
		return false, fmt.Errorf("cannot pause from state %s", state)
	}
	paused, err := c.recorder.TogglePause()
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()

	if paused {
		c.indicator.ShowPaused(context.Background())
	} else {
		c.indicator.ShowRecording(context.Background())
	}
	return paused, nil
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	var resp ipc.Response
	switch req.Command {
	case ipc.CommandStatus:
		resp = ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandToggle:
		resp = c.requestStop("toggle")
	case ipc.CommandStop:
		resp = c.requestStop("stop")
	case ipc.CommandCancel:
		resp = c.requestCancel()
	case ipc.CommandPause:
		resp = c.requestPause()
	default:
		resp = ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
	resp.Mode = string(c.opts.Mode)
	resp.Paused = c.Paused()
	return resp
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	if state == fsm.StateTranscribing || state == fsm.StateSplitting {
		return ipc.Response{OK: false, State: string(state), Error: "already processing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateTranscribing || state == fsm.StateSplitting {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while processing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

func (c *Controller) requestPause() ipc.Response {
	paused, err := c.TogglePause()
	state := string(c.State())
	if err != nil {
		return ipc.Response{OK: false, State: state, Error: err.Error()}
	}
	if paused {
		return ipc.Response{OK: true, State: state, Message: "paused"}
	}
	return ipc.Response{OK: true, State: state, Message: "resumed"}
}

func (c *Controller) fail(result *Result, err error, message string) {
	c.indicator.ShowError(context.Background(), message)
	c.toErrorAndReset()
	result.Err = err
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)

	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrEmptyTranscript):
		return "No speech detected"
	case errors.Is(err, reconcile.ErrNoAudio):
		return "No recording to process"
	default:
		return "Speech recognition failed"
	}
}

func taskSummary(n int) string {
	switch n {
	case 0:
		return "No tasks added"
	case 1:
		return "Added 1 task"
	default:
		return fmt.Sprintf("Added %d tasks", n)
	}
}
