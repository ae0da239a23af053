package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rbright/voxtask/internal/config"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	replaceID uint32
	text      string
	timeoutMS int
}

type fakeBus struct {
	mu        sync.Mutex
	nextID    uint32
	calls     []recordedCall
	dismissed []uint32
}

func (f *fakeBus) notify(_ context.Context, _ string, replaceID uint32, text string, timeoutMS int) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{replaceID: replaceID, text: text, timeoutMS: timeoutMS})
	if replaceID != 0 {
		return replaceID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeBus) dismiss(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, id)
	return nil
}

func newTestNotifier(cfg config.IndicatorConfig, bus *fakeBus) *Notifier {
	n := New(cfg, nil)
	n.notify = bus.notify
	n.dismiss = bus.dismiss
	n.cue = func(cueKind, config.IndicatorConfig) error { return nil }
	return n
}

func TestNotifierReplacesSessionBubbleAndHides(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	bus := &fakeBus{}
	n := newTestNotifier(cfg, bus)

	n.ShowRecording(context.Background())
	n.ShowPaused(context.Background())
	n.ShowProcessing(context.Background())
	n.Hide(context.Background())

	require.Len(t, bus.calls, 3)
	require.Equal(t, recordedCall{replaceID: 0, text: "Listening…", timeoutMS: persistentTimeoutMS}, bus.calls[0])
	require.Equal(t, uint32(1), bus.calls[1].replaceID)
	require.Equal(t, "Paused", bus.calls[1].text)
	require.Equal(t, "Processing…", bus.calls[2].text)
	require.Equal(t, []uint32{1}, bus.dismissed)

	n.Hide(context.Background())
	require.Equal(t, []uint32{1}, bus.dismissed)
}

func TestNotifierSummarySurvivesHide(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	bus := &fakeBus{}
	n := newTestNotifier(cfg, bus)

	n.ShowProcessing(context.Background())
	n.ShowSummary(context.Background(), "Added 2 tasks")
	n.Hide(context.Background())

	require.Len(t, bus.calls, 2)
	require.Equal(t, recordedCall{replaceID: 1, text: "Added 2 tasks", timeoutMS: summaryTimeoutMS}, bus.calls[1])
	require.Empty(t, bus.dismissed)
}

func TestNotifierShowErrorUsesDefaults(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0
	bus := &fakeBus{}
	n := newTestNotifier(cfg, bus)

	n.ShowError(context.Background(), "")
	n.ShowError(context.Background(), "No speech detected")

	require.Len(t, bus.calls, 2)
	require.Equal(t, recordedCall{text: "Voice input failed", timeoutMS: 1200}, bus.calls[0])
	require.Equal(t, uint32(0), bus.calls[1].replaceID)
	require.Equal(t, "No speech detected", bus.calls[1].text)
}

func TestNotifierDisabledSkipsDispatch(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false
	bus := &fakeBus{}
	n := newTestNotifier(cfg, bus)

	n.ShowRecording(context.Background())
	n.ShowProcessing(context.Background())
	n.ShowError(context.Background(), "ignored")
	n.ShowSummary(context.Background(), "ignored")
	n.Hide(context.Background())

	require.Empty(t, bus.calls)
	require.Empty(t, bus.dismissed)
}

func TestNotifierPlaysCuesWhenEnabled(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = true
	n := New(cfg, nil)

	played := make(chan cueKind, 4)
	n.cue = func(kind cueKind, _ config.IndicatorConfig) error {
		played <- kind
		return errors.New("no pulse server")
	}

	n.CueStop(context.Background())
	require.Equal(t, cueStop, <-played)
	n.CueCancel(context.Background())
	require.Equal(t, cueCancel, <-played)
	n.ShowPaused(context.Background())
	require.Equal(t, cuePause, <-played)
}

func TestDesktopNotifyParsesBusctlReply(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 42'
fi
`)

	id, err := desktopNotify(context.Background(), "voxtask", 7, "Listening…", 1500)
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)
	require.NoError(t, desktopDismiss(context.Background(), id))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Notify susssasa{sv}i voxtask 7  Listening…  0 0 1500")
	require.True(t, strings.HasSuffix(lines[1], "CloseNotification u 42"))
}

func TestDesktopNotifyRejectsMalformedReply(t *testing.T) {
	installBusctlStub(t, `
echo 'garbage'
`)

	_, err := desktopNotify(context.Background(), "voxtask", 0, "x", 100)
	require.ErrorContains(t, err, "invalid response")
}

func TestDesktopNotifyReportsCommandFailure(t *testing.T) {
	installBusctlStub(t, `
echo 'no session bus' >&2
exit 3
`)

	_, err := desktopNotify(context.Background(), "voxtask", 0, "x", 100)
	require.ErrorContains(t, err, "desktop notify failed: exit status 3")
	require.ErrorContains(t, err, "no session bus")
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
