package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/fsm"
	"github.com/rbright/voxtask/internal/provider"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	transcript      string
	transcribeErr   error
	transcribePanic any
	tasks           []string
	splitErr        error
	splitPanic      any

	mu         sync.Mutex
	handles    []provider.Handle
	splitCalls []string
}

func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) TranscribeAudio(_ context.Context, h provider.Handle) (string, error) {
	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	if f.transcribePanic != nil {
		panic(f.transcribePanic)
	}
	return f.transcript, f.transcribeErr
}

func (f *fakeProvider) ParseTasks(_ context.Context, text string) ([]string, error) {
	f.mu.Lock()
	f.splitCalls = append(f.splitCalls, text)
	f.mu.Unlock()
	if f.splitPanic != nil {
		panic(f.splitPanic)
	}
	return f.tasks, f.splitErr
}

func TestProcessAudioToTasksSplitsAndParses(t *testing.T) {
	fake := &fakeProvider{
		transcript: "Buy milk - 2 liters and call mom",
		tasks:      []string{"Buy milk - 2 liters", "Call mom: about Sunday"},
	}
	p := New(fake, nil)

	result, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("/tmp/rec.wav"))
	require.NoError(t, err)
	require.Equal(t, "Buy milk - 2 liters and call mom", result.OriginalText)
	require.Equal(t, []draft.Draft{
		{Title: "Buy milk", Description: "2 liters"},
		{Title: "Call mom", Description: "about Sunday"},
	}, result.SuggestedTasks)
	require.Equal(t, []provider.Handle{"/tmp/rec.wav"}, fake.handles)
	require.Equal(t, []string{"Buy milk - 2 liters and call mom"}, fake.splitCalls)

	state := p.State()
	require.False(t, state.IsProcessing)
	require.Empty(t, state.Error)
	require.True(t, state.HasOriginalText)
	require.Equal(t, result.OriginalText, state.OriginalText)
	require.Equal(t, result.SuggestedTasks, state.SuggestedTasks)
	require.Equal(t, fsm.StateIdle, state.Stage)
}

func TestProcessAudioToTasksSplitFailureFallsBackToWholeText(t *testing.T) {
	fake := &fakeProvider{transcript: "Walk the dog", splitErr: errors.New("network down")}
	p := New(fake, nil)

	result, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	require.NoError(t, err)
	require.Equal(t, []draft.Draft{{Title: "Walk the dog"}}, result.SuggestedTasks)
	require.Empty(t, p.State().Error)
}

func TestProcessAudioToTasksSplitPanicFallsBackToWholeText(t *testing.T) {
	fake := &fakeProvider{transcript: "Walk the dog", splitPanic: "decoder exploded"}
	p := New(fake, nil)

	result, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	require.NoError(t, err)
	require.Equal(t, []draft.Draft{{Title: "Walk the dog"}}, result.SuggestedTasks)
}

func TestProcessAudioToTasksInvalidSplitFallsBackWithoutMerging(t *testing.T) {
	tests := []struct {
		name  string
		tasks []string
	}{
		{name: "empty list", tasks: []string{}},
		{name: "nil list", tasks: nil},
		{name: "one blank entry among valid", tasks: []string{"Buy milk", "   "}},
		{name: "only blank", tasks: []string{""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeProvider{transcript: "  Buy milk and eggs ", tasks: tc.tasks}
			p := New(fake, nil)

			result, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
			require.NoError(t, err)
			require.Equal(t, []draft.Draft{{Title: "  Buy milk and eggs "}}, result.SuggestedTasks)
			require.Equal(t, result.SuggestedTasks, p.State().SuggestedTasks)
		})
	}
}

func TestProcessAudioToTasksWithoutAudio(t *testing.T) {
	fake := &fakeProvider{transcript: "unused"}
	p := New(fake, nil)

	_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle(""))
	require.ErrorIs(t, err, ErrNoAudio)
	require.Equal(t, "No audio URI provided", err.Error())
	require.Empty(t, fake.handles)

	state := p.State()
	require.False(t, state.IsProcessing)
	require.Equal(t, "No audio URI provided", state.Error)
	require.Equal(t, fsm.StateError, state.Stage)
}

func TestProcessAudioToTasksEmptyTranscriptNeverSplits(t *testing.T) {
	fake := &fakeProvider{transcript: "   ", tasks: []string{"should not be used"}}
	p := New(fake, nil)

	_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	require.ErrorIs(t, err, ErrEmptyTranscript)
	require.Equal(t, "No text was transcribed from the audio", err.Error())
	require.Empty(t, fake.splitCalls)

	state := p.State()
	require.False(t, state.IsProcessing)
	require.Equal(t, "No text was transcribed from the audio", state.Error)
	require.True(t, state.HasOriginalText)
	require.Equal(t, "   ", state.OriginalText)
}

func TestProcessAudioToTasksTranscriptionErrorPassesThrough(t *testing.T) {
	cause := &provider.TranscriptionError{Provider: "Fake", Err: errors.New("HTTP 401: bad key")}
	fake := &fakeProvider{transcribeErr: cause}
	p := New(fake, nil)

	_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	var transcribeErr *provider.TranscriptionError
	require.True(t, errors.As(err, &transcribeErr))
	require.Empty(t, fake.splitCalls)

	state := p.State()
	require.False(t, state.IsProcessing)
	require.Equal(t, cause.Error(), state.Error)
	require.False(t, state.HasOriginalText)
}

func TestProcessAudioToTasksPanicBecomesUnexpectedError(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		message string
	}{
		{name: "error value", value: errors.New("nil map write"), message: "nil map write"},
		{name: "string value", value: "boom", message: "boom"},
		{name: "opaque value", value: 42, message: "Failed to process audio"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New(&fakeProvider{transcribePanic: tc.value}, nil)

			_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
			var unexpected *UnexpectedError
			require.True(t, errors.As(err, &unexpected))
			require.Equal(t, tc.message, err.Error())

			state := p.State()
			require.False(t, state.IsProcessing)
			require.Equal(t, tc.message, state.Error)
		})
	}
}

func TestProcessAudioToTasksKeepsPreviousResultsUntilOverwritten(t *testing.T) {
	fake := &fakeProvider{transcript: "First", tasks: []string{"First"}}
	p := New(fake, nil)
	_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	require.NoError(t, err)

	fake.transcribeErr = errors.New("offline")
	_, err = p.ProcessAudioToTasks(context.Background(), provider.Handle("b.m4a"))
	require.Error(t, err)

	state := p.State()
	require.Equal(t, "First", state.OriginalText)
	require.Equal(t, []draft.Draft{{Title: "First"}}, state.SuggestedTasks)
	require.Equal(t, "offline", state.Error)
}

func TestProcessAudioToTextNeverSplits(t *testing.T) {
	fake := &fakeProvider{transcript: " Remember the milk ", tasks: []string{"x", "y"}}
	p := New(fake, nil)

	text, err := p.ProcessAudioToText(context.Background(), provider.Handle("a.m4a"))
	require.NoError(t, err)
	require.Equal(t, " Remember the milk ", text)
	require.Empty(t, fake.splitCalls)

	state := p.State()
	require.False(t, state.IsProcessing)
	require.Equal(t, " Remember the milk ", state.OriginalText)
	require.Empty(t, state.SuggestedTasks)
}

func TestProcessAudioToTextErrors(t *testing.T) {
	p := New(&fakeProvider{transcript: "\n\t"}, nil)
	_, err := p.ProcessAudioToText(context.Background(), provider.Handle("a.m4a"))
	require.ErrorIs(t, err, ErrEmptyTranscript)

	_, err = p.ProcessAudioToText(context.Background(), provider.Handle(""))
	require.ErrorIs(t, err, ErrNoAudio)
	require.False(t, p.State().IsProcessing)
}

func TestClearResultsLeavesProcessingFlag(t *testing.T) {
	fake := &fakeProvider{transcript: "Buy milk", tasks: []string{"Buy milk"}}
	p := New(fake, nil)
	_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	require.NoError(t, err)

	p.mu.Lock()
	p.isProcessing = true
	p.errMsg = "stale"
	p.mu.Unlock()

	p.ClearResults()
	state := p.State()
	require.True(t, state.IsProcessing)
	require.Empty(t, state.Error)
	require.False(t, state.HasOriginalText)
	require.Empty(t, state.OriginalText)
	require.NotNil(t, state.SuggestedTasks)
	require.Empty(t, state.SuggestedTasks)
}

func TestClearResultsResetsErrorStage(t *testing.T) {
	p := New(&fakeProvider{}, nil)
	_, err := p.ProcessAudioToTasks(context.Background(), provider.Handle(""))
	require.Error(t, err)
	require.Equal(t, fsm.StateError, p.State().Stage)

	p.ClearResults()
	require.Equal(t, fsm.StateIdle, p.State().Stage)
}

func TestStateSnapshotIsIsolated(t *testing.T) {
	fake := &fakeProvider{transcript: "Buy milk", tasks: []string{"Buy milk"}}
	p := New(fake, nil)
	result, err := p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
	require.NoError(t, err)

	result.SuggestedTasks[0].Title = "mutated"
	snapshot := p.State()
	snapshot.SuggestedTasks[0].Title = "mutated again"

	require.Equal(t, "Buy milk", p.State().SuggestedTasks[0].Title)
}

func TestOverlappingCallsSettleIdle(t *testing.T) {
	fake := &fakeProvider{transcript: "Buy milk", tasks: []string{"Buy milk"}}
	p := New(fake, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.ProcessAudioToTasks(context.Background(), provider.Handle("a.m4a"))
		}()
	}
	wg.Wait()

	state := p.State()
	require.False(t, state.IsProcessing)
	require.Equal(t, fsm.StateIdle, state.Stage)
	require.Equal(t, []draft.Draft{{Title: "Buy milk"}}, state.SuggestedTasks)
}
