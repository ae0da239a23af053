package session

import (
	"context"
	"errors"
	"strings"

	"github.com/rbright/voxtask/internal/audio"
	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/provider"
	"github.com/rbright/voxtask/internal/reconcile"
)

// ErrCaptureUnavailable indicates no recorder was wired.
var ErrCaptureUnavailable = errors.New("audio capture is not available")

// Recorder abstracts microphone capture for one session.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (audio.Recording, error)
	Cancel(context.Context) error
	TogglePause() (bool, error)
}

// Reconciler turns a recording into transcript text or task drafts.
type Reconciler interface {
	ProcessAudioToTasks(context.Context, provider.Handle) (reconcile.Result, error)
	ProcessAudioToText(context.Context, provider.Handle) (string, error)
	ClearResults()
}

// unavailableRecorder fails every start so a miswired session ends immediately.
type unavailableRecorder struct{}

func (unavailableRecorder) Start(context.Context) error { return ErrCaptureUnavailable }

func (unavailableRecorder) Stop(context.Context) (audio.Recording, error) {
	return audio.Recording{}, ErrCaptureUnavailable
}

func (unavailableRecorder) Cancel(context.Context) error { return nil }

func (unavailableRecorder) TogglePause() (bool, error) { return false, ErrCaptureUnavailable }

// Committer delivers a finished session's output.
type Committer interface {
	CommitTasks(context.Context, []draft.Draft) (int, error)
	CommitSingle(context.Context, string) (int, error)
	CommitText(context.Context, string) error
}

type discardCommitter struct{}

func (discardCommitter) CommitTasks(_ context.Context, drafts []draft.Draft) (int, error) {
	return len(drafts), nil
}

func (discardCommitter) CommitSingle(_ context.Context, transcript string) (int, error) {
	if strings.TrimSpace(transcript) == "" {
		return 0, nil
	}
	return 1, nil
}

func (discardCommitter) CommitText(context.Context, string) error { return nil }
