package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is a resolved config plus where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when no file was found and Config holds defaults.
	Exists bool
}

// Load resolves the config path and parses it over Default. A missing file is
// not an error.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}}
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	loaded.Exists = true
	loaded.Config, loaded.Warnings, err = Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return loaded, nil
}
