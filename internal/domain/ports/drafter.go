package ports

import (
	"context"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// SlideDrafter produces a draft slide list from resolved source text via
// an external completion service. Implementations own prompt building
// and response recovery; the orchestrator only sees drafts or an error
// it will silently recover from.
type SlideDrafter interface {
	Draft(ctx context.Context, source entities.ResolvedSource, projectName, locale string) ([]entities.SlideDraft, error)
}
