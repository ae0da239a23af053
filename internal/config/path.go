package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxtask", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "voxtask", "config.jsonc"), nil
}

// StorePath returns store.path or the XDG data default for the task list file.
func StorePath(cfg Config) (string, error) {
	if path := ExpandPath(cfg.Store.Path); path != "" {
		return path, nil
	}
	dir, err := xdgDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voxtask", "tasks.json"), nil
}

// RecordingDir returns recording.dir or the XDG state default for captured audio.
func RecordingDir(cfg Config) (string, error) {
	if dir := ExpandPath(cfg.Recording.Dir); dir != "" {
		return dir, nil
	}
	dir, err := xdgDir("XDG_STATE_HOME", ".local", "state")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voxtask", "recordings"), nil
}

// ExpandPath trims raw and expands a leading "~/" to the user home.
func ExpandPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}

func xdgDir(env string, homeParts ...string) (string, error) {
	if xdg := strings.TrimSpace(os.Getenv(env)); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for " + env + " fallback")
	}
	return filepath.Join(append([]string{home}, homeParts...)...), nil
}
