// Package output applies session commit side effects: task persistence and clipboard text.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/voxtask/internal/config"
	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/taskstore"
)

// TaskAdder persists task drafts.
type TaskAdder interface {
	AddOne(draft.Draft) (taskstore.Task, error)
	AddMany([]draft.Draft) ([]taskstore.Task, error)
}

// Committer saves reconciled drafts to the task store and copies dictated text.
type Committer struct {
	config config.OutputConfig
	store  TaskAdder
	logger *slog.Logger
}

// NewCommitter constructs a committer from runtime config.
func NewCommitter(cfg config.OutputConfig, store TaskAdder, logger *slog.Logger) *Committer {
	return &Committer{config: cfg, store: store, logger: logger}
}

// CommitTasks appends drafts to the store and returns how many were added.
func (c *Committer) CommitTasks(_ context.Context, drafts []draft.Draft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	if c.store == nil {
		return 0, fmt.Errorf("task store is not configured")
	}

	added, err := c.store.AddMany(drafts)
	if err != nil {
		return 0, fmt.Errorf("save tasks: %w", err)
	}
	if c.logger != nil {
		ids := make([]string, 0, len(added))
		for _, task := range added {
			ids = append(ids, task.ID)
		}
		c.logger.Info("tasks saved", "count", len(added), "ids", ids)
	}
	return len(added), nil
}

// CommitSingle saves the transcript as one task titled with its trimmed text.
func (c *Committer) CommitSingle(_ context.Context, transcript string) (int, error) {
	title := strings.TrimSpace(transcript)
	if title == "" {
		return 0, nil
	}
	if c.store == nil {
		return 0, fmt.Errorf("task store is not configured")
	}

	task, err := c.store.AddOne(draft.Draft{Title: title})
	if err != nil {
		return 0, fmt.Errorf("save task: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("task saved", "id", task.ID, "single", true)
	}
	return 1, nil
}

// CommitText writes transcript text to the clipboard when copying is enabled.
func (c *Committer) CommitText(ctx context.Context, transcript string) error {
	if transcript == "" || !c.config.CopyText {
		return nil
	}

	clipboardCtx, clipboardCancel := context.WithTimeout(ctx, 2*time.Second)
	defer clipboardCancel()
	if err := runCommandWithInput(clipboardCtx, c.config.Clipboard.Argv, transcript); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
