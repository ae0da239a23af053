// Package app dispatches parsed CLI commands to sessions, the task store, and diagnostics.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rbright/voxtask/internal/audio"
	"github.com/rbright/voxtask/internal/cli"
	"github.com/rbright/voxtask/internal/config"
	"github.com/rbright/voxtask/internal/doctor"
	"github.com/rbright/voxtask/internal/ipc"
	"github.com/rbright/voxtask/internal/logging"
	"github.com/rbright/voxtask/internal/session"
	"github.com/rbright/voxtask/internal/version"
)

const binaryName = "voxtask"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Getenv resolves provider credentials; nil means os.Getenv.
	Getenv func(string) string
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	cfg := cfgLoaded.Config
	if parsed.Single {
		cfg.Output.SingleTask = true
	}
	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, r.getenv)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop, cli.CommandCancel, cli.CommandPause:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandToggle:
		return r.commandSession(ctx, cfg, logger, session.ModeTasks)
	case cli.CommandDictate:
		return r.commandSession(ctx, cfg, logger, session.ModeText)
	case cli.CommandAdd:
		return r.commandAdd(ctx, cfg, logger, parsed.Args[0])
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, cfg, logger, parsed.Args[0])
	case cli.CommandNew:
		return r.commandNew(cfg, parsed.Args)
	case cli.CommandList:
		return r.commandList(cfg, parsed.Search, parsed.Sort)
	case cli.CommandDone:
		return r.commandDone(cfg, parsed.Args[0])
	case cli.CommandDue:
		return r.commandDue(cfg, parsed.Args[0], parsed.Args[1])
	case cli.CommandRemove:
		return r.commandRemove(cfg, parsed.Args[0])
	case cli.CommandClear:
		return r.commandClear(cfg)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r Runner) fail(err error) int {
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return 1
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return r.fail(err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tDESCRIPTION\tSTATE\tAVAILABLE\tMUTED")
	for _, device := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark(device.Default, "*", " "),
			device.ID,
			device.Description,
			device.State,
			mark(device.Available, "yes", "no"),
			mark(device.Muted, "yes", "no"),
		)
	}
	if err := tw.Flush(); err != nil {
		return r.fail(err)
	}
	return 0
}

func mark(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		return r.fail(err)
	}

	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Paused {
		state += " (paused)"
	}
	fmt.Fprintln(r.Stdout, state)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voxtask session\n")
		return 1
	}
	if err != nil {
		return r.fail(err)
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward reports handled=false only when no owner is listening.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Forward(ctx, socketPath, command, 220*time.Millisecond)
	switch {
	case ipc.NoOwner(err):
		return ipc.Response{}, false, nil
	case err != nil:
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	case !resp.OK:
		return resp, true, errors.New(resp.Error)
	default:
		return resp, true, nil
	}
}
