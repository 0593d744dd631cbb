package ports

import (
	"context"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// GeneratorService is the primary port driving the deck pipeline. Both
// the HTTP API and the CLI consume it.
type GeneratorService interface {
	// Generate runs the full pipeline for one request: resolve the
	// source, draft slides, normalize, score, and heal if needed.
	Generate(ctx context.Context, req entities.GenerationRequest) (*entities.GenerationResult, error)
}

// ServerService is the primary port for the long-running API process.
type ServerService interface {
	// Start binds the listener and begins serving. It returns once the
	// listener is up; serving continues in the background until Stop.
	Start(ctx context.Context, port int, host string) error

	// Stop drains in-flight requests and releases the listener.
	Stop(ctx context.Context) error
}
