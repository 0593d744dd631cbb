package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

// ProjectFileName is the config file checked in the working directory.
const ProjectFileName = "deckhand.toml"

// TOMLStore reads deckhand configuration from TOML files. Discovery
// checks the working directory first, then the per-user config
// directory; the nearest file wins outright, the layers are not merged.
type TOMLStore struct {
	userPath string
}

// NewTOMLStore creates a store rooted at the OS user config directory
// (XDG on Linux, Application Support on macOS).
func NewTOMLStore() *TOMLStore {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return &TOMLStore{userPath: filepath.Join(base, "deckhand", "config.toml")}
}

// Read loads and validates the config file at path.
func (s *TOMLStore) Read(path string) (*entities.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator, not a request
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg entities.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Find returns the first existing config file for a run started in dir,
// or "" when none exists.
func (s *TOMLStore) Find(dir string) string {
	for _, candidate := range []string{filepath.Join(dir, ProjectFileName), s.userPath} {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// Bootstrap writes a starter config file with the built-in defaults to
// the per-user location and returns its path. An existing file is never
// overwritten.
func (s *TOMLStore) Bootstrap() (string, error) {
	if _, err := os.Stat(s.userPath); err == nil {
		return "", fmt.Errorf("config already exists at %s", s.userPath)
	}

	if err := os.MkdirAll(filepath.Dir(s.userPath), 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	file, err := os.Create(s.userPath) // #nosec G304 - fixed per-user path
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", s.userPath, err)
	}
	defer func() { _ = file.Close() }()

	encoder := toml.NewEncoder(file)
	encoder.Indent = "  "
	if err := encoder.Encode(DefaultConfig()); err != nil {
		return "", fmt.Errorf("writing defaults to %s: %w", s.userPath, err)
	}
	return s.userPath, nil
}

// Ensure TOMLStore implements ports.ConfigStore
var _ ports.ConfigStore = (*TOMLStore)(nil)
