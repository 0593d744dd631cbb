package services

import (
	"fmt"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

// ConfigResolver assembles the effective runtime configuration.
// Precedence, lowest to highest: built-in defaults, one config file
// (an explicit path, else the nearest discovered file), DECKHAND_*
// environment variables, CLI flags.
type ConfigResolver struct {
	store  ports.ConfigStore
	merger ports.ConfigMerger
}

// NewConfigResolver creates a resolver over the given store and merger.
func NewConfigResolver(store ports.ConfigStore, merger ports.ConfigMerger) *ConfigResolver {
	return &ConfigResolver{store: store, merger: merger}
}

// Resolve builds the configuration for a run started in workingDir. An
// explicit path must exist and parse; when it is empty the store
// searches workingDir and the per-user location, and finding nothing is
// fine — defaults plus overrides still apply. The resolved config is
// validated before it is returned.
func (r *ConfigResolver) Resolve(workingDir, explicitPath string, flags map[string]interface{}) (*entities.Config, error) {
	cfg := r.merger.Merge()

	path := explicitPath
	if path == "" {
		path = r.store.Find(workingDir)
	}
	if path != "" {
		fileCfg, err := r.store.Read(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = r.merger.Merge(cfg, fileCfg)
	}

	cfg = r.merger.ApplyFlags(r.merger.ApplyEnvVars(cfg), flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolved config is invalid: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration without any file, env, or
// flag overrides.
func (r *ConfigResolver) Defaults() *entities.Config {
	return r.merger.Merge()
}

// Bootstrap writes a starter config file at the per-user location and
// returns its path. Fails when a file already exists there.
func (r *ConfigResolver) Bootstrap() (string, error) {
	return r.store.Bootstrap()
}
