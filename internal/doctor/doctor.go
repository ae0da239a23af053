// Package doctor runs runtime readiness diagnostics for config, tools, audio, and providers.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/voxtask/internal/audio"
	"github.com/rbright/voxtask/internal/config"
	"github.com/rbright/voxtask/internal/provider"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var selectDevice = audio.SelectDevice

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, getenv func(string) string) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("no file at %q; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", getenv, func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "session socket directory is set", "XDG_RUNTIME_DIR is empty; toggle/stop cannot reach a running session"))

	checks = append(checks, checkProvider(ctx, cfg.Config.Provider, getenv)...)

	if cfg.Config.Output.CopyText {
		checks = append(checks, checkCommand(cfg.Config.Output.Clipboard.Argv, "clipboard_cmd"))
	}
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
	}

	checks = append(checks, checkStore(cfg.Config))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, getenv func(string) string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkProvider reports the selected backend and, for the gateway, probes readiness.
func checkProvider(ctx context.Context, cfg config.ProviderConfig, getenv func(string) string) []Check {
	selected, selection, err := provider.Select(cfg, getenv, nil)
	if err != nil {
		return []Check{{Name: "provider", Pass: false, Message: err.Error()}}
	}
	if closer, ok := selected.(io.Closer); ok {
		defer closer.Close()
	}

	if selection.Defaulted {
		return []Check{{
			Name:    "provider",
			Pass:    false,
			Message: fmt.Sprintf("no credentials found; set one of %s", strings.Join(credentialEnvs(), ", ")),
		}}
	}

	message := fmt.Sprintf("%s selected via %s", selected.Name(), selection.Env)
	if selection.Splitter != "" {
		message += fmt.Sprintf(" (task splitting via %s)", selection.Splitter)
	}
	checks := []Check{{Name: "provider", Pass: true, Message: message}}

	if gw, ok := selected.(*provider.Gateway); ok {
		checks = append(checks, checkGatewayReady(ctx, gw))
	}
	return checks
}

func checkGatewayReady(ctx context.Context, gw *provider.Gateway) Check {
	readyCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := gw.Ready(readyCtx); err != nil {
		return Check{Name: "gateway.ready", Pass: false, Message: fmt.Sprintf("%s: %v", gw.Endpoint(), err)}
	}
	return Check{Name: "gateway.ready", Pass: true, Message: fmt.Sprintf("serving at %s", gw.Endpoint())}
}

func credentialEnvs() []string {
	return []string{provider.EnvDeepgramKey, provider.EnvGeminiKey, provider.EnvOpenAIKey, provider.EnvGatewayAddr}
}

// checkStore verifies the task list directory exists or can be created and written.
func checkStore(cfg config.Config) Check {
	path, err := config.StorePath(cfg)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("tasks at %s", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := selectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
