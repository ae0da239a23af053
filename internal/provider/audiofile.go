package provider

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// maxAudioBytes bounds uploads; hosted speech APIs reject larger single requests anyway.
const maxAudioBytes = 25 << 20

type audioFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Path resolves the handle to a local filesystem path.
func (h Handle) Path() (string, error) {
	raw := strings.TrimSpace(string(h))
	if raw == "" {
		return "", errors.New("audio handle is empty")
	}
	if !strings.HasPrefix(raw, "file://") {
		return raw, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse audio uri %q: %w", raw, err)
	}
	if parsed.Path == "" {
		return "", fmt.Errorf("audio uri %q has no path", raw)
	}
	return parsed.Path, nil
}

// readAudio loads the recording behind h together with its content type.
func readAudio(h Handle) (audioFile, error) {
	path, err := h.Path()
	if err != nil {
		return audioFile{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return audioFile{}, fmt.Errorf("stat audio %q: %w", path, err)
	}
	if info.IsDir() {
		return audioFile{}, fmt.Errorf("audio %q is a directory", path)
	}
	if info.Size() == 0 {
		return audioFile{}, fmt.Errorf("audio %q is empty", path)
	}
	if info.Size() > maxAudioBytes {
		return audioFile{}, fmt.Errorf("audio %q is %d bytes; limit is %d", path, info.Size(), maxAudioBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return audioFile{}, fmt.Errorf("read audio %q: %w", path, err)
	}

	return audioFile{
		Name:     filepath.Base(path),
		MimeType: mimeTypeFor(path),
		Data:     data,
	}, nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	case ".mp4":
		return "audio/mp4"
	default:
		return "audio/m4a"
	}
}
