package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
)

func promptSource() entities.ResolvedSource {
	return entities.ResolvedSource{
		Text:  "# Phoenix\n\nRebuild the ingestion pipeline.",
		Label: "markdown",
		Type:  entities.SourceTypeMarkdown,
	}
}

func TestBuildMessages_Layout(t *testing.T) {
	msgs := BuildMessages(promptSource(), "Phoenix", "en")
	require.Len(t, msgs, 2)

	assert.Equal(t, ports.RoleSystem, msgs[0].Role)
	assert.Equal(t, systemPrompt, msgs[0].Content)

	assert.Equal(t, ports.RoleUser, msgs[1].Role)
	assert.Equal(t, "Project name: Phoenix\n\nSource (markdown):\n\n# Phoenix\n\nRebuild the ingestion pipeline.", msgs[1].Content)
}

func TestBuildMessages_NoProjectName(t *testing.T) {
	src := promptSource()
	src.Type = entities.SourceTypeURL

	msgs := BuildMessages(src, "", "en")
	require.Len(t, msgs, 2)
	assert.Equal(t, "Source (url):\n\n# Phoenix\n\nRebuild the ingestion pipeline.", msgs[1].Content)
}

func TestBuildMessages_LocaleInstruction(t *testing.T) {
	tests := []struct {
		name     string
		locale   string
		wantLine string
	}{
		{"korean", "ko", "- Write all slide text in Korean."},
		{"uppercase japanese", "JA", "- Write all slide text in Japanese."},
		{"german", "de", "- Write all slide text in German."},
		{"english gets no extra line", "en", ""},
		{"unknown locale", "pt", ""},
		{"empty locale", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := BuildMessages(promptSource(), "", tt.locale)
			system := msgs[0].Content
			if tt.wantLine == "" {
				assert.Equal(t, systemPrompt, system)
			} else {
				assert.Equal(t, systemPrompt+"\n"+tt.wantLine, system)
			}
		})
	}
}

func TestSystemPrompt_NamesEverySlideType(t *testing.T) {
	for _, typ := range entities.AllSlideTypes() {
		assert.Contains(t, systemPrompt, `"`+string(typ)+`"`)
	}
	assert.Contains(t, systemPrompt, `"slides"`)
	assert.Contains(t, systemPrompt, "between 5 and 9 slides")
}
