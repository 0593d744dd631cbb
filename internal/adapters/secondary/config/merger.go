package config

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

// Merger layers configuration sources. Throughout this file a zero
// value means "not set": an overlay never erases the value underneath
// it with an empty string, a zero number, or an empty list.
type Merger struct{}

// NewMerger returns a stateless Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge overlays configs left to right onto a copy of the first one.
// Nil entries are skipped; called without arguments it returns the
// built-in defaults.
func (m *Merger) Merge(configs ...*entities.Config) *entities.Config {
	if len(configs) == 0 || configs[0] == nil {
		return DefaultConfig()
	}

	result := configs[0].Clone()
	for _, c := range configs[1:] {
		if c != nil {
			overlay(result, c)
		}
	}
	return result
}

// ApplyFlags overlays values collected from CLI flags. The flag values
// are staged into a Config and run through the same overlay as file
// layers, so an unset cobra flag never clobbers a configured value.
func (m *Merger) ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config {
	var over entities.Config

	if v, ok := flags["host"].(string); ok {
		over.Server.Host = v
	}
	if v, ok := flags["port"].(int); ok && v > 0 {
		over.Server.Port = v
	}
	if v, ok := flags["locale"].(string); ok {
		over.Generation.Locale = v
	}
	if v, ok := flags["heal-threshold"].(int); ok && v > 0 {
		over.Generation.HealThreshold = v
	}
	if v, ok := flags["model"].(string); ok {
		over.AI.Model = v
	}
	if v, ok := flags["verbose"].(bool); ok && v {
		over.Logging.Level = string(entities.LogLevelDebug)
	}

	result := config.Clone()
	overlay(result, &over)
	return result
}

// ApplyEnvVars overlays DECKHAND_* environment variables so deployments
// can reconfigure without touching TOML. Unset and unparsable variables
// leave the existing value alone.
func (m *Merger) ApplyEnvVars(config *entities.Config) *entities.Config {
	result := config.Clone()

	envString("HOST", &result.Server.Host)
	envInt("PORT", &result.Server.Port)
	envInt("READ_TIMEOUT", &result.Server.ReadTimeout)
	envInt("WRITE_TIMEOUT", &result.Server.WriteTimeout)
	envInt("SHUTDOWN_TIMEOUT", &result.Server.ShutdownTimeout)
	envString("ENV", &result.Server.Environment)
	envList("CORS_ORIGINS", &result.Server.CORSOrigins)

	envInt("MIN_SLIDES", &result.Generation.MinSlides)
	envInt("MAX_SLIDES", &result.Generation.MaxSlides)
	envInt("HEAL_THRESHOLD", &result.Generation.HealThreshold)
	envInt("PIPELINE_TIMEOUT", &result.Generation.PipelineTimeout)
	envString("LOCALE", &result.Generation.Locale)

	envInt("FETCH_TIMEOUT", &result.Fetch.AttemptTimeout)
	envInt("FETCH_RETRIES", &result.Fetch.MaxRetries)
	envInt64("FETCH_MAX_BYTES", &result.Fetch.MaxBytes)

	envList("ALLOWED_ROOTS", &result.Files.AllowedRoots)
	envInt64("MAX_PDF_BYTES", &result.Files.MaxPDFBytes)

	envString("AI_PROVIDER", &result.AI.Provider)
	envString("AI_MODEL", &result.AI.Model)
	envString("AI_KEY_ENV", &result.AI.APIKeyEnv)
	envString("AI_BASE_URL", &result.AI.BaseURL)
	envFloat("AI_TEMPERATURE", &result.AI.Temperature)
	envInt("AI_MAX_TOKENS", &result.AI.MaxTokens)

	envString("LOG_LEVEL", &result.Logging.Level)
	envString("LOG_MODE", &result.Logging.Mode)

	return result
}

// overlay copies every set field of src onto dst. Slices are cloned so
// later mutation of src cannot reach through.
func overlay(dst, src *entities.Config) {
	mergeString(&dst.Server.Host, src.Server.Host)
	mergeInt(&dst.Server.Port, src.Server.Port)
	mergeInt(&dst.Server.ReadTimeout, src.Server.ReadTimeout)
	mergeInt(&dst.Server.WriteTimeout, src.Server.WriteTimeout)
	mergeInt(&dst.Server.ShutdownTimeout, src.Server.ShutdownTimeout)
	mergeString(&dst.Server.Environment, src.Server.Environment)
	mergeList(&dst.Server.CORSOrigins, src.Server.CORSOrigins)

	mergeInt(&dst.Generation.MinSlides, src.Generation.MinSlides)
	mergeInt(&dst.Generation.MaxSlides, src.Generation.MaxSlides)
	mergeInt(&dst.Generation.HealThreshold, src.Generation.HealThreshold)
	mergeInt(&dst.Generation.PipelineTimeout, src.Generation.PipelineTimeout)
	mergeString(&dst.Generation.Locale, src.Generation.Locale)

	mergeInt(&dst.Fetch.AttemptTimeout, src.Fetch.AttemptTimeout)
	mergeInt(&dst.Fetch.MaxRetries, src.Fetch.MaxRetries)
	mergeInt64(&dst.Fetch.MaxBytes, src.Fetch.MaxBytes)

	mergeList(&dst.Files.AllowedRoots, src.Files.AllowedRoots)
	mergeInt64(&dst.Files.MaxPDFBytes, src.Files.MaxPDFBytes)

	mergeString(&dst.AI.Provider, src.AI.Provider)
	mergeString(&dst.AI.Model, src.AI.Model)
	mergeString(&dst.AI.APIKeyEnv, src.AI.APIKeyEnv)
	mergeString(&dst.AI.BaseURL, src.AI.BaseURL)
	mergeFloat(&dst.AI.Temperature, src.AI.Temperature)
	mergeInt(&dst.AI.MaxTokens, src.AI.MaxTokens)

	mergeString(&dst.Logging.Level, src.Logging.Level)
	mergeString(&dst.Logging.Mode, src.Logging.Mode)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt64(dst *int64, v int64) {
	if v != 0 {
		*dst = v
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = slices.Clone(v)
	}
}

// envPrefix namespaces every environment variable deckhand reads.
const envPrefix = "DECKHAND_"

func envString(name string, dst *string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(name string, dst *int64) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envList(name string, dst *[]string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if parts := splitList(v); len(parts) > 0 {
			*dst = parts
		}
	}
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ ports.ConfigMerger = (*Merger)(nil)
