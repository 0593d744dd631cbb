package ai

import (
	"context"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// Drafter implements ports.SlideDrafter: prompt building, completion,
// and reply extraction live here so the rest of the pipeline never sees
// raw model output.
type Drafter struct {
	client ports.CompletionClient
	cfg    entities.AIConfig
	logger *logger.Logger
}

// NewDrafter wraps a completion client. log may be nil.
func NewDrafter(client ports.CompletionClient, cfg entities.AIConfig, log *logger.Logger) *Drafter {
	if log == nil {
		log = logger.Nop()
	}
	return &Drafter{client: client, cfg: cfg, logger: log}
}

// NewDrafterFromConfig wires the configured provider. A missing API key
// returns (nil, nil): the caller runs the deterministic generator only,
// and no error is reported anywhere user-facing.
func NewDrafterFromConfig(ctx context.Context, cfg entities.AIConfig, log *logger.Logger) (*Drafter, error) {
	apiKey := cfg.GetAPIKey()
	if apiKey == "" {
		return nil, nil
	}

	var client ports.CompletionClient
	switch cfg.GetProvider() {
	case "openai":
		client = NewOpenAIClient(cfg.BaseURL, apiKey, cfg.GetModel(), log)
	default:
		gemini, err := NewGeminiClient(ctx, apiKey, cfg.GetModel())
		if err != nil {
			return nil, err
		}
		client = gemini
	}
	return NewDrafter(client, cfg, log), nil
}

// Draft runs one completion and extracts the slide drafts. Every
// failure comes back as AI_UNAVAILABLE so callers can treat the whole
// AI path as a single fallible unit.
func (d *Drafter) Draft(ctx context.Context, source entities.ResolvedSource, projectName, locale string) ([]entities.SlideDraft, error) {
	reply, err := d.client.Complete(ctx, ports.CompletionRequest{
		Messages:    BuildMessages(source, projectName, locale),
		Temperature: d.cfg.GetTemperature(),
		MaxTokens:   d.cfg.GetMaxTokens(),
		ForceJSON:   true,
	})
	if err != nil {
		return nil, entities.WrapPipelineError(entities.CodeAIUnavailable, "completion failed", err)
	}

	drafts, err := ExtractDrafts(reply)
	if err != nil {
		d.logger.Warn("model reply was not usable JSON", "reply_bytes", len(reply))
		return nil, entities.WrapPipelineError(entities.CodeAIUnavailable, "reply was not usable JSON", err)
	}
	return drafts, nil
}
