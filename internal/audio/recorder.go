package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/voxtask/internal/provider"
)

var (
	// ErrNotRecording is returned by Stop, Cancel, and TogglePause without an active capture.
	ErrNotRecording = errors.New("not recording")
	// ErrAlreadyRecording is returned by Start while a capture is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNoAudioCaptured is returned when a capture stopped with zero samples.
	ErrNoAudioCaptured = errors.New("no audio captured; check microphone input or mute state")
)

// Recording describes one finished capture written to disk.
type Recording struct {
	Handle   provider.Handle
	Path     string
	Device   Device
	Bytes    int64
	Duration time.Duration
}

// RecorderConfig controls device preference and output placement.
type RecorderConfig struct {
	Input    string
	Fallback string
	Dir      string
}

// source is the capture surface the recorder drives.
type source interface {
	Device() Device
	PCM() []byte
	BytesCaptured() int64
	SetPaused(bool)
	Paused() bool
	Stop() error
}

// Recorder captures one utterance at a time and keeps the last recording's
// handle and the last failure message as state.
type Recorder struct {
	cfg    RecorderConfig
	logger *slog.Logger
	open   func(context.Context) (source, string, error)
	now    func() time.Time

	mu      sync.Mutex
	active  source
	started time.Time
	uri     provider.Handle
	errMsg  string
}

// NewRecorder builds a recorder that captures from Pulse.
func NewRecorder(cfg RecorderConfig, logger *slog.Logger) *Recorder {
	r := &Recorder{cfg: cfg, logger: logger, now: time.Now}
	r.open = r.openPulse
	return r
}

func (r *Recorder) openPulse(ctx context.Context) (source, string, error) {
	selection, err := SelectDevice(ctx, r.cfg.Input, r.cfg.Fallback)
	if err != nil {
		return nil, "", err
	}
	capture, err := StartCapture(ctx, selection.Device)
	if err != nil {
		return nil, "", err
	}
	return capture, selection.Warning, nil
}

// Start begins capturing. Failures are also kept for Err.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrAlreadyRecording
	}
	r.errMsg = ""

	src, warning, err := r.open(ctx)
	if err != nil {
		r.errMsg = err.Error()
		return fmt.Errorf("start recording: %w", err)
	}
	if warning != "" && r.logger != nil {
		r.logger.Warn(warning)
	}

	r.active = src
	r.started = r.now()
	if r.logger != nil {
		r.logger.Debug("recording started", "device", Describe(src.Device()))
	}
	return nil
}

// Recording reports whether a capture is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Elapsed reports wall time since Start, or zero when idle.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return 0
	}
	return r.now().Sub(r.started)
}

// TogglePause flips whether incoming audio is kept and returns the new paused state.
func (r *Recorder) TogglePause() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.errMsg = "Failed to toggle pause"
		return false, ErrNotRecording
	}
	paused := !r.active.Paused()
	r.active.SetPaused(paused)
	return paused, nil
}

// Stop ends the capture, writes it as WAV, and records its handle for URI.
func (r *Recorder) Stop(_ context.Context) (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src := r.active
	if src == nil {
		return Recording{}, ErrNotRecording
	}
	r.active = nil

	_ = src.Stop()
	pcm := src.PCM()
	if len(pcm) == 0 {
		r.errMsg = ErrNoAudioCaptured.Error()
		return Recording{}, ErrNoAudioCaptured
	}

	path, err := r.writeRecording(pcm)
	if err != nil {
		r.errMsg = "Failed to stop recording"
		return Recording{}, err
	}

	rec := Recording{
		Handle:   provider.Handle(path),
		Path:     path,
		Device:   src.Device(),
		Bytes:    int64(len(pcm)),
		Duration: PCMDuration(int64(len(pcm))),
	}
	r.uri = rec.Handle
	if r.logger != nil {
		r.logger.Debug("recording stopped",
			"path", path,
			"bytes", rec.Bytes,
			"duration_ms", rec.Duration.Milliseconds(),
		)
	}
	return rec, nil
}

// Cancel discards the active capture without writing anything.
func (r *Recorder) Cancel(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return ErrNotRecording
	}
	_ = r.active.Stop()
	r.active = nil
	return nil
}

// URI returns the handle of the last finished recording, empty before the first.
func (r *Recorder) URI() provider.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uri
}

// Err returns the last recorder failure message.
func (r *Recorder) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

func (r *Recorder) ClearErr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = ""
}

func (r *Recorder) writeRecording(pcm []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}

	name := fmt.Sprintf("rec-%s.wav", r.now().Format("20060102-150405.000"))
	path := filepath.Join(r.cfg.Dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open recording %q: %w", path, err)
	}
	if err := WriteWAV(file, pcm, SampleRate, Channels); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write recording %q: %w", path, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close recording %q: %w", path, err)
	}
	return path, nil
}

// Discard deletes a finished recording file. Missing files are ignored.
func Discard(rec Recording) error {
	if rec.Path == "" {
		return nil
	}
	if err := os.Remove(rec.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove recording %q: %w", rec.Path, err)
	}
	return nil
}
