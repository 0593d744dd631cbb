package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heading(level int, text string) MarkdownToken {
	return MarkdownToken{Kind: TokenHeading, Level: level, Text: text}
}

func paragraph(text string) MarkdownToken {
	return MarkdownToken{Kind: TokenParagraph, Text: text}
}

func list(ordered bool, items ...string) MarkdownToken {
	return MarkdownToken{Kind: TokenList, Ordered: ordered, Items: items}
}

func TestMarkdownTokenFlatText(t *testing.T) {
	t.Run("joins every populated field", func(t *testing.T) {
		tok := MarkdownToken{
			Text:    "t",
			Items:   []string{"i1", "i2"},
			Headers: []string{"h1"},
			Rows:    [][]string{{"r1", "r2"}},
			Author:  "au",
		}
		assert.Equal(t, "t i1 i2 h1 r1 r2 au", tok.FlatText())
	})

	t.Run("list token", func(t *testing.T) {
		tok := list(false, "alpha", "beta")
		assert.Equal(t, "alpha beta", tok.FlatText())
	})

	t.Run("empty token", func(t *testing.T) {
		tok := MarkdownToken{Kind: TokenRule}
		assert.Empty(t, tok.FlatText())
	})
}

func TestMarkdownDocumentTitle(t *testing.T) {
	t.Run("frontmatter title wins", func(t *testing.T) {
		doc := MarkdownDocument{
			Frontmatter: map[string]interface{}{"title": "  From Frontmatter  "},
			Tokens:      []MarkdownToken{heading(1, "From Heading")},
		}
		assert.Equal(t, "From Frontmatter", doc.Title())
	})

	t.Run("non-string frontmatter title is ignored", func(t *testing.T) {
		doc := MarkdownDocument{
			Frontmatter: map[string]interface{}{"title": 42},
			Tokens:      []MarkdownToken{heading(1, "From Heading")},
		}
		assert.Equal(t, "From Heading", doc.Title())
	})

	t.Run("blank frontmatter title is ignored", func(t *testing.T) {
		doc := MarkdownDocument{
			Frontmatter: map[string]interface{}{"title": "   "},
			Tokens:      []MarkdownToken{heading(1, "From Heading")},
		}
		assert.Equal(t, "From Heading", doc.Title())
	})

	t.Run("first level-1 heading", func(t *testing.T) {
		doc := MarkdownDocument{Tokens: []MarkdownToken{
			heading(2, "Subsection"),
			heading(1, "Real Title"),
			heading(1, "Second H1"),
		}}
		assert.Equal(t, "Real Title", doc.Title())
	})

	t.Run("untitled document", func(t *testing.T) {
		doc := MarkdownDocument{Tokens: []MarkdownToken{paragraph("text")}}
		assert.Empty(t, doc.Title())
	})
}

func TestMarkdownDocumentHasStructure(t *testing.T) {
	t.Run("paragraphs alone are unstructured", func(t *testing.T) {
		doc := MarkdownDocument{Tokens: []MarkdownToken{paragraph("a"), paragraph("b")}}
		assert.False(t, doc.HasStructure())
	})

	t.Run("code and rules do not count", func(t *testing.T) {
		doc := MarkdownDocument{Tokens: []MarkdownToken{
			{Kind: TokenCode, Text: "x := 1"},
			{Kind: TokenRule},
		}}
		assert.False(t, doc.HasStructure())
	})

	t.Run("structural kinds count", func(t *testing.T) {
		for _, tok := range []MarkdownToken{
			heading(2, "h"),
			list(false, "i"),
			{Kind: TokenQuote, Text: "q"},
			{Kind: TokenTable, Headers: []string{"a", "b"}},
		} {
			doc := MarkdownDocument{Tokens: []MarkdownToken{paragraph("p"), tok}}
			assert.True(t, doc.HasStructure(), string(tok.Kind))
		}
	})

	t.Run("empty document", func(t *testing.T) {
		doc := MarkdownDocument{}
		assert.False(t, doc.HasStructure())
	})
}

func TestSplitSections(t *testing.T) {
	t.Run("splits at the two shallowest levels", func(t *testing.T) {
		tokens := []MarkdownToken{
			paragraph("lead"),
			heading(2, "A"),
			paragraph("pa"),
			heading(3, "B"),
			heading(4, "deep"),
			paragraph("pb"),
			heading(2, "C"),
		}

		sections := SplitSections(tokens)
		require.Len(t, sections, 4)

		assert.Equal(t, MarkdownSection{Tokens: []MarkdownToken{paragraph("lead")}}, sections[0])
		assert.Equal(t, MarkdownSection{Heading: "A", Level: 2, Tokens: []MarkdownToken{paragraph("pa")}}, sections[1])
		assert.Equal(t, MarkdownSection{Heading: "B", Level: 3, Tokens: []MarkdownToken{heading(4, "deep"), paragraph("pb")}}, sections[2])
		assert.Equal(t, MarkdownSection{Heading: "C", Level: 2}, sections[3])
	})

	t.Run("no headings yields one leading section", func(t *testing.T) {
		tokens := []MarkdownToken{paragraph("a"), list(false, "b")}

		sections := SplitSections(tokens)
		require.Len(t, sections, 1)
		assert.Empty(t, sections[0].Heading)
		assert.Equal(t, tokens, sections[0].Tokens)
	})

	t.Run("no tokens yields no sections", func(t *testing.T) {
		assert.Nil(t, SplitSections(nil))
	})

	t.Run("single level document splits at that level", func(t *testing.T) {
		tokens := []MarkdownToken{
			heading(1, "Only"),
			paragraph("p"),
			heading(1, "Again"),
		}

		sections := SplitSections(tokens)
		require.Len(t, sections, 2)
		assert.Equal(t, "Only", sections[0].Heading)
		assert.Equal(t, "Again", sections[1].Heading)
	})
}

func TestMarkdownSectionHelpers(t *testing.T) {
	section := MarkdownSection{
		Heading: "Mixed",
		Level:   2,
		Tokens: []MarkdownToken{
			paragraph("first"),
			list(false, "b1", "b2"),
			list(true, "o1"),
			{Kind: TokenQuote, Text: "early quote", Author: "A"},
			list(false, "b3"),
			paragraph("second"),
			{Kind: TokenQuote, Text: "late quote"},
			{Kind: TokenTable, Headers: []string{"K", "V"}, Rows: [][]string{{"a", "1"}}},
		},
	}

	assert.Equal(t, []string{"b1", "b2", "b3"}, section.Bullets())
	assert.Equal(t, []string{"o1"}, section.OrderedItems())
	assert.Equal(t, []string{"first", "second"}, section.Paragraphs())

	quote := section.FirstQuote()
	require.NotNil(t, quote)
	assert.Equal(t, "early quote", quote.Text)

	table := section.FirstTable()
	require.NotNil(t, table)
	assert.Equal(t, []string{"K", "V"}, table.Headers)

	empty := MarkdownSection{Tokens: []MarkdownToken{paragraph("p")}}
	assert.Nil(t, empty.FirstQuote())
	assert.Nil(t, empty.FirstTable())
}
