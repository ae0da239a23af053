// Package reconcile turns a recorded utterance into transcript text or validated task
// drafts, absorbing splitter and validation failures with whole-transcript fallbacks.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/fsm"
	"github.com/rbright/voxtask/internal/logging"
	"github.com/rbright/voxtask/internal/provider"
)

var (
	// ErrNoAudio is returned when no audio handle was supplied.
	ErrNoAudio = errors.New("No audio URI provided")
	// ErrEmptyTranscript is returned when transcription produced only whitespace.
	ErrEmptyTranscript = errors.New("No text was transcribed from the audio")
)

const unexpectedFallbackMessage = "Failed to process audio"

// UnexpectedError wraps a panic raised while processing.
type UnexpectedError struct {
	Message string
	Value   any
}

func (e *UnexpectedError) Error() string {
	return e.Message
}

// Result is the successful output of ProcessAudioToTasks.
type Result struct {
	OriginalText   string
	SuggestedTasks []draft.Draft
}

// State is a snapshot of the processor's shared pipeline fields.
type State struct {
	IsProcessing bool
	Error        string
	// OriginalText is meaningful only when HasOriginalText is true.
	OriginalText    string
	HasOriginalText bool
	SuggestedTasks  []draft.Draft
	Stage           fsm.State
}

// Processor runs the reconciliation pipeline against one injected provider.
//
// Overlapping calls are allowed. Each field write is guarded, but calls are not
// serialized against each other, so concurrent runs interleave last-writer-wins.
type Processor struct {
	provider provider.Provider
	logger   *slog.Logger

	mu              sync.Mutex
	isProcessing    bool
	errMsg          string
	originalText    string
	hasOriginalText bool
	suggested       []draft.Draft
	stage           fsm.State
}

// New constructs a processor. A nil logger discards output.
func New(p provider.Provider, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Processor{
		provider:  p,
		logger:    logger,
		suggested: []draft.Draft{},
		stage:     fsm.StateIdle,
	}
}

// State returns a copy of the current pipeline fields.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	tasks := make([]draft.Draft, len(p.suggested))
	copy(tasks, p.suggested)
	return State{
		IsProcessing:    p.isProcessing,
		Error:           p.errMsg,
		OriginalText:    p.originalText,
		HasOriginalText: p.hasOriginalText,
		SuggestedTasks:  tasks,
		Stage:           p.stage,
	}
}

// ClearResults drops the transcript, suggestions, and error. IsProcessing is untouched.
func (p *Processor) ClearResults() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.originalText = ""
	p.hasOriginalText = false
	p.suggested = []draft.Draft{}
	p.errMsg = ""
	if p.stage == fsm.StateError {
		p.stage = fsm.StateIdle
	}
}

// ProcessAudioToTasks transcribes h, splits the transcript into candidate tasks, and
// returns validated drafts. Splitter and validator failures fall back to a single
// draft holding the whole transcript.
func (p *Processor) ProcessAudioToTasks(ctx context.Context, h provider.Handle) (result Result, err error) {
	p.begin()
	defer p.finish(&err)

	text, err := p.transcribe(ctx, h)
	if err != nil {
		return Result{}, err
	}

	p.setStage(fsm.StateSplitting)
	raw := p.split(ctx, text)

	drafts := draft.Parse(raw)
	if !draft.Valid(drafts) {
		p.logger.Warn("split result failed validation; using whole transcript",
			"provider", p.provider.Name(),
			"candidates", len(raw),
		)
		drafts = draft.Fallback(text)
	}

	p.mu.Lock()
	p.suggested = drafts
	p.mu.Unlock()

	p.logger.Info("audio reconciled to tasks",
		"provider", p.provider.Name(),
		"tasks", len(drafts),
		"transcript_chars", len(text),
	)
	return Result{OriginalText: text, SuggestedTasks: cloneDrafts(drafts)}, nil
}

// ProcessAudioToText transcribes h and returns the text without splitting.
func (p *Processor) ProcessAudioToText(ctx context.Context, h provider.Handle) (text string, err error) {
	p.begin()
	defer p.finish(&err)

	text, err = p.transcribe(ctx, h)
	if err != nil {
		return "", err
	}
	p.logger.Info("audio transcribed",
		"provider", p.provider.Name(),
		"transcript_chars", len(text),
	)
	return text, nil
}

// transcribe covers the steps shared by both operations: handle check, remote
// transcription, recording the transcript, and the emptiness check.
func (p *Processor) transcribe(ctx context.Context, h provider.Handle) (string, error) {
	if h.Empty() {
		return "", ErrNoAudio
	}

	text, err := p.provider.TranscribeAudio(ctx, h)
	if err != nil {
		p.logger.Error("transcription failed", "provider", p.provider.Name(), "error", err.Error())
		return "", err
	}

	p.mu.Lock()
	p.originalText = text
	p.hasOriginalText = true
	p.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// split calls the remote splitter, substituting the whole text when it fails or panics.
func (p *Processor) split(ctx context.Context, text string) (tasks []string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("task split panicked; using whole transcript",
				"provider", p.provider.Name(),
				"panic", fmt.Sprint(r),
			)
			tasks = []string{text}
		}
	}()

	tasks, err := p.provider.ParseTasks(ctx, text)
	if err != nil {
		p.logger.Warn("task split failed; using whole transcript",
			"provider", p.provider.Name(),
			"error", err.Error(),
		)
		return []string{text}
	}
	return tasks
}

func (p *Processor) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isProcessing = true
	p.errMsg = ""
	p.stage = fsm.StateTranscribing
}

// finish converts a panic into an UnexpectedError, records the failure message, and
// always clears IsProcessing. It must be deferred directly.
func (p *Processor) finish(errp *error) {
	if r := recover(); r != nil {
		unexpected := &UnexpectedError{Message: panicMessage(r), Value: r}
		p.logger.Error("unexpected failure while processing audio", "error", unexpected.Message)
		*errp = unexpected
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.isProcessing = false
	if *errp != nil {
		p.errMsg = (*errp).Error()
		p.stage = fsm.StateError
		return
	}
	p.stage = fsm.StateIdle
}

func (p *Processor) setStage(stage fsm.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = stage
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		if v.Error() != "" {
			return v.Error()
		}
	case string:
		if v != "" {
			return v
		}
	case fmt.Stringer:
		if s := v.String(); s != "" {
			return s
		}
	}
	return unexpectedFallbackMessage
}

func cloneDrafts(drafts []draft.Draft) []draft.Draft {
	out := make([]draft.Draft, len(drafts))
	copy(out, drafts)
	return out
}
