package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/voxtask/internal/config"
	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/taskstore"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) AddOne(draft.Draft) (taskstore.Task, error) {
	return taskstore.Task{}, errors.New("disk full")
}

func (failingStore) AddMany([]draft.Draft) ([]taskstore.Task, error) {
	return nil, errors.New("disk full")
}

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from voxtask")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from voxtask", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestCommitTextWritesClipboard(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default().Output
	cfg.Clipboard = config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}

	committer := NewCommitter(cfg, nil, nil)
	require.NoError(t, committer.CommitText(context.Background(), "captured transcript"))

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "captured transcript", string(data))
}

func TestCommitTextSkipsEmptyTranscriptAndDisabledCopy(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default().Output
	cfg.Clipboard = config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}
	require.NoError(t, NewCommitter(cfg, nil, nil).CommitText(context.Background(), ""))

	cfg.CopyText = false
	require.NoError(t, NewCommitter(cfg, nil, nil).CommitText(context.Background(), "not copied"))

	_, statErr := os.Stat(clipboardPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestCommitTextReturnsErrorWhenClipboardCommandFails(t *testing.T) {
	cfg := config.Default().Output
	cfg.Clipboard = config.CommandConfig{Argv: []string{writeFailScript(t, "clipboard failed")}}

	err := NewCommitter(cfg, nil, nil).CommitText(context.Background(), "captured transcript")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
}

func TestCommitTasksAppendsToStore(t *testing.T) {
	store, err := taskstore.Open(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	committer := NewCommitter(config.Default().Output, store, nil)
	added, err := committer.CommitTasks(context.Background(), []draft.Draft{
		{Title: "Buy milk"},
		{Title: "Call mom", Description: "about Sunday"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	tasks, err := store.List(taskstore.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	titles := []string{tasks[0].Title, tasks[1].Title}
	require.ElementsMatch(t, []string{"Buy milk", "Call mom"}, titles)
	require.WithinDuration(t, time.Now(), tasks[0].CreatedAt, time.Minute)
}

func TestCommitTasksEmptyIsNoop(t *testing.T) {
	added, err := NewCommitter(config.Default().Output, failingStore{}, nil).CommitTasks(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, added)
}

func TestCommitTasksWrapsStoreError(t *testing.T) {
	_, err := NewCommitter(config.Default().Output, failingStore{}, nil).CommitTasks(context.Background(), []draft.Draft{{Title: "x"}})
	require.ErrorContains(t, err, "save tasks: disk full")

	_, err = NewCommitter(config.Default().Output, nil, nil).CommitTasks(context.Background(), []draft.Draft{{Title: "x"}})
	require.ErrorContains(t, err, "task store is not configured")
}

func TestCommitSingleSavesTrimmedTranscript(t *testing.T) {
	store, err := taskstore.Open(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	committer := NewCommitter(config.Default().Output, store, nil)
	added, err := committer.CommitSingle(context.Background(), "  buy milk and call mom \n")
	require.NoError(t, err)
	require.Equal(t, 1, added)

	tasks, err := store.List(taskstore.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "buy milk and call mom", tasks[0].Title)
	require.Empty(t, tasks[0].Description)
}

func TestCommitSingleSkipsBlankAndWrapsStoreError(t *testing.T) {
	added, err := NewCommitter(config.Default().Output, failingStore{}, nil).CommitSingle(context.Background(), "   ")
	require.NoError(t, err)
	require.Zero(t, added)

	_, err = NewCommitter(config.Default().Output, failingStore{}, nil).CommitSingle(context.Background(), "buy milk")
	require.ErrorContains(t, err, "save task: disk full")
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
