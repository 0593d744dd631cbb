package ports

import "context"

// Message roles understood by completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one call to an external completion service.
type CompletionRequest struct {
	// Messages are the ordered conversation turns.
	Messages []Message

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length; 0 means provider default.
	MaxTokens int

	// ForceJSON asks the provider to emit a JSON document when it
	// supports constrained output. The response is still treated as
	// untrusted free text.
	ForceJSON bool
}

// CompletionClient calls an external AI completion service. The returned
// string is the raw model output; callers own all parsing and recovery.
// Implementations are the only code in the tree touching vendor APIs.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
