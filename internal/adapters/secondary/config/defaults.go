package config

import (
	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// DefaultConfig returns the built-in baseline. It reads nothing from the
// process environment: DECKHAND_* variables are overlaid by the merger
// after any config file, so they win over both.
//
// The values here deliberately repeat the entity getter fallbacks. That
// keeps the file Bootstrap writes an honest picture of what an untouched
// installation runs with.
func DefaultConfig() *entities.Config {
	return &entities.Config{
		Server: entities.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30,
			WriteTimeout:    60,
			ShutdownTimeout: 5,
			Environment:     "development",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://localhost:8080",
				"http://127.0.0.1:8080",
			},
		},
		Generation: entities.GenerationConfig{
			MinSlides:       entities.MinSlides,
			MaxSlides:       entities.MaxSlides,
			HealThreshold:   entities.DefaultHealThreshold,
			PipelineTimeout: 45,
			Locale:          "en",
		},
		Fetch: entities.FetchConfig{
			AttemptTimeout: 12,
			MaxRetries:     2,
			MaxBytes:       8 << 20,
		},
		Files: entities.FilesConfig{
			// AllowedRoots stays empty: the runtime default is the
			// invoking user's home and working directory, which must not
			// be baked into a shareable config file.
			MaxPDFBytes: 8 << 20,
		},
		AI: entities.AIConfig{
			Provider:    "gemini",
			Temperature: 0.4,
			MaxTokens:   4096,
		},
		Logging: entities.LoggingConfig{
			Level: "info",
			Mode:  "development",
		},
	}
}
