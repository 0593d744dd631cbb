package ai

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"

	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

// GeminiClient implements ports.CompletionClient over the official SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient connects to the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends the conversation and returns the first candidate's
// text. The system message becomes the system instruction; assistant
// turns map to the model role.
func (c *GeminiClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	var system *genai.Content
	var contents []*genai.Content

	for _, msg := range req.Messages {
		content := &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}}
		switch msg.Role {
		case ports.RoleSystem:
			system = content
		case ports.RoleAssistant:
			content.Role = "model"
			contents = append(contents, content)
		default:
			content.Role = "user"
			contents = append(contents, content)
		}
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.ForceJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
