package ports

import (
	"context"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// SourceResolver turns a generation request's raw input into sanitized
// source text. Implementations handle URL classification, SSRF-guarded
// fetching, local file reads, and format extraction; every failure is a
// *entities.PipelineError.
type SourceResolver interface {
	Resolve(ctx context.Context, req entities.GenerationRequest) (entities.ResolvedSource, error)
}
