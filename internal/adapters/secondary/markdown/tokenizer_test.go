package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

func tokenize(t *testing.T, source string) entities.MarkdownDocument {
	t.Helper()
	return NewGoldmarkTokenizer().Tokenize(source)
}

func TestTokenize_FullDocument(t *testing.T) {
	src := `---
title: Release Notes
locale: en
---

# Deckhand 2.0

The new release focuses on *stability* and speed.

## Highlights

- Faster startup
- Lower memory use

## Rollout

1. Canary
2. Staged
3. Global

> Ship it. — The Team

| Region | Status |
|:-------|-------:|
| EU | done |

` + "```go\nfmt.Println(\"hi\")\n```" + `

***
`

	doc := tokenize(t, src)

	assert.Equal(t, map[string]interface{}{"title": "Release Notes", "locale": "en"}, doc.Frontmatter)
	require.Len(t, doc.Tokens, 10)

	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenHeading, Level: 1, Text: "Deckhand 2.0"}, doc.Tokens[0])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenParagraph, Text: "The new release focuses on stability and speed."}, doc.Tokens[1])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenHeading, Level: 2, Text: "Highlights"}, doc.Tokens[2])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenList, Items: []string{"Faster startup", "Lower memory use"}}, doc.Tokens[3])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenHeading, Level: 2, Text: "Rollout"}, doc.Tokens[4])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenList, Ordered: true, Items: []string{"Canary", "Staged", "Global"}}, doc.Tokens[5])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenQuote, Text: "Ship it.", Author: "The Team"}, doc.Tokens[6])
	assert.Equal(t, entities.MarkdownToken{
		Kind:       entities.TokenTable,
		Headers:    []string{"Region", "Status"},
		Rows:       [][]string{{"EU", "done"}},
		Alignments: []string{"left", "right"},
	}, doc.Tokens[7])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenCode, Lang: "go", Text: "fmt.Println(\"hi\")"}, doc.Tokens[8])
	assert.Equal(t, entities.MarkdownToken{Kind: entities.TokenRule}, doc.Tokens[9])
}

func TestTokenize_InlineFlattening(t *testing.T) {
	t.Run("soft line breaks become spaces", func(t *testing.T) {
		doc := tokenize(t, "line one\nline two")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "line one line two", doc.Tokens[0].Text)
	})

	t.Run("link text is kept, targets dropped", func(t *testing.T) {
		doc := tokenize(t, "See the [docs](https://example.com/docs) for details.")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "See the docs for details.", doc.Tokens[0].Text)
	})

	t.Run("bare URLs are kept verbatim", func(t *testing.T) {
		doc := tokenize(t, "Visit https://example.com now")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "Visit https://example.com now", doc.Tokens[0].Text)
	})

	t.Run("empty headings are dropped", func(t *testing.T) {
		doc := tokenize(t, "#\n\ntext")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, entities.TokenParagraph, doc.Tokens[0].Kind)
	})
}

func TestTokenize_Lists(t *testing.T) {
	t.Run("nested lists fold into their parent item", func(t *testing.T) {
		doc := tokenize(t, "- Parent\n  - child1\n  - child2\n- Solo")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, []string{"Parent: child1, child2", "Solo"}, doc.Tokens[0].Items)
	})

	t.Run("task list markers are invisible", func(t *testing.T) {
		doc := tokenize(t, "- [ ] write tests\n- [x] ship")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, []string{"write tests", "ship"}, doc.Tokens[0].Items)
	})

	t.Run("ordered flag follows the marker", func(t *testing.T) {
		doc := tokenize(t, "1. one\n2. two")
		require.Len(t, doc.Tokens, 1)
		assert.True(t, doc.Tokens[0].Ordered)
	})
}

func TestTokenize_QuoteAttribution(t *testing.T) {
	t.Run("attribution on its own line", func(t *testing.T) {
		doc := tokenize(t, "> Quality is not an act.\n>\n> — Aristotle")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "Quality is not an act.", doc.Tokens[0].Text)
		assert.Equal(t, "Aristotle", doc.Tokens[0].Author)
	})

	t.Run("trailing dash splits mid-line", func(t *testing.T) {
		doc := tokenize(t, "> \"Stay hungry.\" — Jobs")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "Stay hungry.", doc.Tokens[0].Text)
		assert.Equal(t, "Jobs", doc.Tokens[0].Author)
	})

	t.Run("double hyphen counts as a dash", func(t *testing.T) {
		doc := tokenize(t, "> Less is more. -- Mies")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "Less is more.", doc.Tokens[0].Text)
		assert.Equal(t, "Mies", doc.Tokens[0].Author)
	})

	t.Run("overlong trailing text is not an author", func(t *testing.T) {
		doc := tokenize(t, "> Everything changes — "+strings.Repeat("x", 100))
		require.Len(t, doc.Tokens, 1)
		assert.Empty(t, doc.Tokens[0].Author)
		assert.Contains(t, doc.Tokens[0].Text, "Everything changes")
	})

	t.Run("no attribution", func(t *testing.T) {
		doc := tokenize(t, "> Just a thought worth keeping.")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "Just a thought worth keeping.", doc.Tokens[0].Text)
		assert.Empty(t, doc.Tokens[0].Author)
	})
}

func TestTokenize_Tables(t *testing.T) {
	t.Run("header only table survives", func(t *testing.T) {
		doc := tokenize(t, "| A | B |\n|---|---|")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, entities.TokenTable, doc.Tokens[0].Kind)
		assert.Equal(t, []string{"A", "B"}, doc.Tokens[0].Headers)
		assert.Empty(t, doc.Tokens[0].Rows)
	})

	t.Run("single column degrades to a paragraph", func(t *testing.T) {
		doc := tokenize(t, "| Only |\n|------|\n| one |")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, entities.TokenParagraph, doc.Tokens[0].Kind)
		assert.Equal(t, "Only one", doc.Tokens[0].Text)
	})

	t.Run("cell formatting is flattened", func(t *testing.T) {
		doc := tokenize(t, "| **K** | _V_ |\n|---|---|\n| `a` | b |")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, []string{"K", "V"}, doc.Tokens[0].Headers)
		assert.Equal(t, [][]string{{"a", "b"}}, doc.Tokens[0].Rows)
	})
}

func TestTokenize_HTMLAndCode(t *testing.T) {
	t.Run("html blocks degrade to visible text", func(t *testing.T) {
		doc := tokenize(t, "<div>Visible <b>text</b></div>")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, entities.TokenParagraph, doc.Tokens[0].Kind)
		assert.Equal(t, "Visible text", doc.Tokens[0].Text)
	})

	t.Run("script blocks vanish", func(t *testing.T) {
		doc := tokenize(t, "<script>alert(1)</script>")
		assert.Empty(t, doc.Tokens)
	})

	t.Run("indented code has no language", func(t *testing.T) {
		doc := tokenize(t, "para\n\n    indented code\n")
		require.Len(t, doc.Tokens, 2)
		assert.Equal(t, entities.TokenCode, doc.Tokens[1].Kind)
		assert.Equal(t, "indented code", doc.Tokens[1].Text)
		assert.Empty(t, doc.Tokens[1].Lang)
	})

	t.Run("multi-line fences keep interior newlines", func(t *testing.T) {
		doc := tokenize(t, "```\na\nb\n```")
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "a\nb", doc.Tokens[0].Text)
	})
}

func TestTokenize_Frontmatter(t *testing.T) {
	t.Run("unclosed frontmatter stays in the body", func(t *testing.T) {
		doc := tokenize(t, "---\ntitle: x\nno closing fence")
		assert.Nil(t, doc.Frontmatter)
		assert.NotEmpty(t, doc.Tokens)
	})

	t.Run("invalid yaml stays in the body", func(t *testing.T) {
		doc := tokenize(t, "---\n[unclosed\n---\nBody")
		assert.Nil(t, doc.Frontmatter)

		var texts []string
		for _, tok := range doc.Tokens {
			texts = append(texts, tok.Text)
		}
		assert.Contains(t, texts, "Body")
	})

	t.Run("empty block is discarded", func(t *testing.T) {
		doc := tokenize(t, "---\n\n---\nBody")
		assert.Nil(t, doc.Frontmatter)
		require.Len(t, doc.Tokens, 1)
		assert.Equal(t, "Body", doc.Tokens[0].Text)
	})
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, tokenize(t, "").Tokens)
	assert.Empty(t, tokenize(t, "   \n\n  ").Tokens)
}
