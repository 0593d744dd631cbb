package ai

import (
	"fmt"
	"strings"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

const systemPrompt = `You are a presentation designer. You turn source material into a slide deck plan.

Reply with ONE JSON object and nothing else: no prose, no markdown fences, no comments.

Schema:
{"slides": [
  {"type": "title", "title": "...", "subtitle": "..."},
  {"type": "card-grid", "title": "...", "items": ["...", "..."]},
  {"type": "comparison", "title": "...", "left": {"title": "...", "points": ["..."]}, "right": {"title": "...", "points": ["..."]}},
  {"type": "timeline", "title": "...", "steps": [{"title": "...", "description": "..."}]},
  {"type": "quote", "quote": "...", "author": "..."},
  {"type": "table", "title": "...", "headers": ["...", "..."], "rows": [["...", "..."]]}
]}

Rules:
- Produce between 5 and 9 slides.
- The first slide must have type "title".
- Use only the six types above, choosing the layout that fits each idea.
- Keep card items under 20 words and never more than 6 items per slide.
- Draw every fact from the source material; do not invent content.`

// languageNames maps locale codes to the language instruction appended
// to the system prompt.
var languageNames = map[string]string{
	"en": "English",
	"ko": "Korean",
	"ja": "Japanese",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
}

// BuildMessages constructs the drafting conversation: the fixed system
// prompt plus one user message carrying the project name and source.
func BuildMessages(source entities.ResolvedSource, projectName, locale string) []ports.Message {
	system := systemPrompt
	lower := strings.ToLower(locale)
	if name, ok := languageNames[lower]; ok && lower != "en" {
		system += fmt.Sprintf("\n- Write all slide text in %s.", name)
	}

	var user strings.Builder
	if projectName != "" {
		fmt.Fprintf(&user, "Project name: %s\n\n", projectName)
	}
	fmt.Fprintf(&user, "Source (%s):\n\n%s", source.Type, source.Text)

	return []ports.Message{
		{Role: ports.RoleSystem, Content: system},
		{Role: ports.RoleUser, Content: user.String()},
	}
}
