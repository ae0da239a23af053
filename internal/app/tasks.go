package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/voxtask/internal/config"
	"github.com/rbright/voxtask/internal/draft"
	"github.com/rbright/voxtask/internal/provider"
	"github.com/rbright/voxtask/internal/reconcile"
	"github.com/rbright/voxtask/internal/taskstore"
)

const dueDateLayout = "2006-01-02"

// newProcessor selects the backend once and returns the processor plus a release func.
func (r Runner) newProcessor(cfg config.Config, logger *slog.Logger) (*reconcile.Processor, func(), error) {
	selected, selection, err := provider.Select(cfg.Provider, r.getenv, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("provider selected",
		"provider", selected.Name(),
		"env", selection.Env,
		"defaulted", selection.Defaulted,
		"splitter", selection.Splitter,
	)

	release := func() {}
	if closer, ok := selected.(io.Closer); ok {
		release = func() { _ = closer.Close() }
	}
	return reconcile.New(selected, logger), release, nil
}

func openStore(cfg config.Config) (*taskstore.Store, error) {
	path, err := config.StorePath(cfg)
	if err != nil {
		return nil, err
	}
	return taskstore.Open(path)
}

func audioHandle(file string) (provider.Handle, error) {
	abs, err := filepath.Abs(config.ExpandPath(file))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", file, err)
	}
	return provider.Handle(abs), nil
}

func (r Runner) commandAdd(ctx context.Context, cfg config.Config, logger *slog.Logger, file string) int {
	handle, err := audioHandle(file)
	if err != nil {
		return r.fail(err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	processor, release, err := r.newProcessor(cfg, logger)
	if err != nil {
		return r.fail(err)
	}
	defer release()

	result, err := processor.ProcessAudioToTasks(ctx, handle)
	if err != nil {
		return r.fail(err)
	}

	var added []taskstore.Task
	if cfg.Output.SingleTask {
		var task taskstore.Task
		task, err = store.AddOne(draft.Draft{Title: strings.TrimSpace(result.OriginalText)})
		added = []taskstore.Task{task}
	} else {
		added, err = store.AddMany(result.SuggestedTasks)
	}
	if err != nil {
		return r.fail(fmt.Errorf("save tasks: %w", err))
	}
	processor.ClearResults()

	fmt.Fprintf(r.Stdout, "added %d task(s)\n", len(added))
	for _, task := range added {
		r.printTask(task)
	}
	return 0
}

func (r Runner) commandNew(cfg config.Config, args []string) int {
	d := draft.Draft{Title: strings.TrimSpace(args[0])}
	if len(args) > 1 {
		d.Description = strings.TrimSpace(args[1])
	}
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	task, err := store.AddOne(d)
	if err != nil {
		return r.fail(fmt.Errorf("save task: %w", err))
	}
	r.printTask(task)
	return 0
}

func (r Runner) commandTranscribe(ctx context.Context, cfg config.Config, logger *slog.Logger, file string) int {
	handle, err := audioHandle(file)
	if err != nil {
		return r.fail(err)
	}
	processor, release, err := r.newProcessor(cfg, logger)
	if err != nil {
		return r.fail(err)
	}
	defer release()

	text, err := processor.ProcessAudioToText(ctx, handle)
	if err != nil {
		return r.fail(err)
	}
	fmt.Fprintln(r.Stdout, strings.TrimSpace(text))
	return 0
}

func (r Runner) commandList(cfg config.Config, search string, sort taskstore.SortOrder) int {
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	tasks, err := store.List(taskstore.Query{Search: search, Sort: sort})
	if err != nil {
		return r.fail(err)
	}

	pending, completed := taskstore.Sections(tasks)
	fmt.Fprintf(r.Stdout, "Pending (%d)\n", len(pending))
	for _, task := range pending {
		r.printTask(task)
	}
	fmt.Fprintf(r.Stdout, "Completed (%d)\n", len(completed))
	for _, task := range completed {
		r.printTask(task)
	}
	return 0
}

func (r Runner) commandDone(cfg config.Config, id string) int {
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	task, err := store.Toggle(id)
	if err != nil {
		return r.fail(err)
	}
	r.printTask(task)
	return 0
}

func (r Runner) commandDue(cfg config.Config, id string, raw string) int {
	patch, err := dueDatePatch(raw)
	if err != nil {
		return r.fail(err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	task, err := store.Update(id, patch)
	if err != nil {
		return r.fail(err)
	}
	r.printTask(task)
	return 0
}

func (r Runner) commandRemove(cfg config.Config, id string) int {
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	if err := store.Delete(id); err != nil {
		return r.fail(err)
	}
	fmt.Fprintf(r.Stdout, "removed %s\n", id)
	return 0
}

func (r Runner) commandClear(cfg config.Config) int {
	store, err := openStore(cfg)
	if err != nil {
		return r.fail(err)
	}
	if err := store.Clear(); err != nil {
		return r.fail(err)
	}
	fmt.Fprintln(r.Stdout, "cleared")
	return 0
}

// dueDatePatch accepts a local calendar date, an RFC 3339 timestamp, or "none".
func dueDatePatch(raw string) (taskstore.Patch, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "none") {
		return taskstore.Patch{ClearDueDate: true}, nil
	}
	if due, err := time.ParseInLocation(dueDateLayout, raw, time.Local); err == nil {
		return taskstore.Patch{DueDate: &due}, nil
	}
	if due, err := time.Parse(time.RFC3339, raw); err == nil {
		return taskstore.Patch{DueDate: &due}, nil
	}
	return taskstore.Patch{}, errors.New(`due date must be YYYY-MM-DD, RFC 3339, or "none"`)
}

func (r Runner) printTask(task taskstore.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %s  %s", mark, task.ID, task.Title)
	if task.DueDate != nil {
		line += "  due " + task.DueDate.Local().Format(dueDateLayout)
	}
	fmt.Fprintln(r.Stdout, line)
	if task.Description != "" {
		fmt.Fprintf(r.Stdout, "      %s\n", task.Description)
	}
}
