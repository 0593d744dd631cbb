package ports

import (
	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// ConfigStore reads configuration documents from disk and knows the
// locations deckhand checks by default.
type ConfigStore interface {
	// Read loads and validates the config file at path. A missing file
	// is an error; use Find to discover optional files first.
	Read(path string) (*entities.Config, error)

	// Find returns the first existing config file for a run started in
	// dir, or "" when none exists. Candidates are checked nearest
	// first: dir/deckhand.toml, then the per-user config file.
	Find(dir string) string

	// Bootstrap writes a starter config file with the built-in defaults
	// to the per-user location and returns its path. Never overwrites.
	Bootstrap() (string, error)
}

// ConfigMerger layers configuration documents and overrides.
type ConfigMerger interface {
	// Merge overlays configs left to right; zero-valued fields never
	// override. With no arguments it returns the built-in defaults.
	Merge(configs ...*entities.Config) *entities.Config

	// ApplyEnvVars overlays DECKHAND_* environment variables.
	ApplyEnvVars(config *entities.Config) *entities.Config

	// ApplyFlags overlays CLI flag values; zero values are skipped.
	ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config
}
