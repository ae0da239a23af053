// Package cli parses voxtask command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/voxtask/internal/taskstore"
)

type Command string

const (
	CommandToggle     Command = "toggle"
	CommandDictate    Command = "dictate"
	CommandStop       Command = "stop"
	CommandCancel     Command = "cancel"
	CommandPause      Command = "pause"
	CommandStatus     Command = "status"
	CommandAdd        Command = "add"
	CommandTranscribe Command = "transcribe"
	CommandNew        Command = "new"
	CommandList       Command = "list"
	CommandDone       Command = "done"
	CommandDue        Command = "due"
	CommandRemove     Command = "remove"
	CommandClear      Command = "clear"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// arity maps each command to its required positional argument names.
var arity = map[Command][]string{
	CommandToggle:     nil,
	CommandDictate:    nil,
	CommandStop:       nil,
	CommandCancel:     nil,
	CommandPause:      nil,
	CommandStatus:     nil,
	CommandAdd:        {"FILE"},
	CommandTranscribe: {"FILE"},
	CommandNew:        {"TITLE"},
	CommandList:       nil,
	CommandDone:       {"ID"},
	CommandDue:        {"ID", "DATE"},
	CommandRemove:     {"ID"},
	CommandClear:      nil,
	CommandDevices:    nil,
	CommandDoctor:     nil,
	CommandVersion:    nil,
	CommandHelp:       nil,
}

// optional maps commands to trailing positional arguments that may be omitted.
var optional = map[Command][]string{
	CommandNew: {"DESCRIPTION"},
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	Search     string
	Sort       taskstore.SortOrder
	// Single saves a voice capture as one task titled with the transcript.
	Single   bool
	ShowHelp bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, Sort: taskstore.DefaultSort}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--single":
			parsed.Single = true
		case "--config", "--search", "--sort":
			i++
			if i >= len(args) {
				return Parsed{}, flagValueError(arg)
			}
			if err := parsed.setFlag(arg, args[i]); err != nil {
				return Parsed{}, err
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := arity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			names := append(append([]string(nil), want...), optional[cmd]...)
			rest := args[i+1:]
			if len(rest) > len(names) {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			if len(rest) < len(want) {
				return Parsed{}, fmt.Errorf("command %q requires %s", arg, strings.Join(want, " "))
			}
			for j, value := range rest {
				if strings.TrimSpace(value) == "" {
					return Parsed{}, fmt.Errorf("command %q: %s must not be empty", arg, names[j])
				}
			}

			parsed.Command = cmd
			parsed.Args = rest
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

func (p *Parsed) setFlag(name, value string) error {
	switch name {
	case "--config":
		p.ConfigPath = value
	case "--search":
		p.Search = value
	case "--sort":
		order, err := taskstore.ParseSortOrder(value)
		if err != nil {
			return err
		}
		p.Sort = order
	}
	return nil
}

func flagValueError(name string) error {
	switch name {
	case "--config":
		return errors.New("--config requires a path")
	case "--search":
		return errors.New("--search requires a query")
	default:
		return errors.New("--sort requires an order")
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--single] [--search Q] [--sort ORDER] <command> [ARGS]

Voice:
  toggle            Start recording, or stop and save spoken tasks
  dictate           Start recording, or stop and copy the transcript
  stop              Stop the active recording and process it
  cancel            Cancel the active recording and discard audio
  pause             Pause or resume the active recording
  status            Print current state
  add FILE          Turn a recorded audio file into tasks
  transcribe FILE   Print the transcript of an audio file

Tasks:
  new TITLE [DESC]  Add a task by hand
  list              Print pending and completed tasks
  done ID           Toggle completion of a task
  due ID DATE       Set a due date (YYYY-MM-DD or RFC 3339), or "none" to clear
  remove ID         Delete a task
  clear             Delete all tasks

Other:
  devices           List available input devices
  doctor            Run configuration and environment checks
  version           Print version information
  help              Show this help

Flags:
  --config PATH     Config file path (default: $XDG_CONFIG_HOME/voxtask/config.jsonc)
  --single          Save toggle and add captures as one task holding the transcript
  --search Q        Filter list output by title or description
  --sort ORDER      List order: title-asc, title-desc, dueDate-asc, dueDate-desc (default: dueDate-asc)
  -h, --help        Show help
  --version         Show version
`, binaryName)
}
