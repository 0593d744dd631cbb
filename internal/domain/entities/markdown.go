package entities

import "strings"

// TokenKind discriminates the structural markdown tokens the tokenizer
// emits.
type TokenKind string

const (
	TokenHeading   TokenKind = "heading"
	TokenParagraph TokenKind = "paragraph"
	TokenList      TokenKind = "list"
	TokenQuote     TokenKind = "quote"
	TokenCode      TokenKind = "code"
	TokenTable     TokenKind = "table"
	TokenRule      TokenKind = "rule"
)

// MarkdownToken is one structural element of a markdown document with
// inline formatting already flattened to plain text. Only the fields
// relevant to Kind are populated.
type MarkdownToken struct {
	// Kind selects which fields below are meaningful.
	Kind TokenKind

	// Level is the heading level (1-6) for heading tokens.
	Level int

	// Text is the flattened text of a heading, paragraph, or quote, and
	// the literal body of a code token.
	Text string

	// Ordered reports whether a list token was numbered.
	Ordered bool

	// Items are the flattened list item texts for list tokens.
	Items []string

	// Author is the attribution split off a quote token, empty when the
	// quote carried none.
	Author string

	// Lang is the fence info string of a code token.
	Lang string

	// Headers, Rows, and Alignments describe a table token. Alignments
	// holds "left", "center", "right", or "" per column.
	Headers    []string
	Rows       [][]string
	Alignments []string
}

// FlatText returns all text carried by the token joined into one string,
// used for keyword scans.
func (t *MarkdownToken) FlatText() string {
	var parts []string
	if t.Text != "" {
		parts = append(parts, t.Text)
	}
	parts = append(parts, t.Items...)
	parts = append(parts, t.Headers...)
	for _, row := range t.Rows {
		parts = append(parts, row...)
	}
	if t.Author != "" {
		parts = append(parts, t.Author)
	}
	return strings.Join(parts, " ")
}

// MarkdownDocument is the tokenizer's output: the ordered token stream
// plus any YAML frontmatter found at the top of the input.
type MarkdownDocument struct {
	// Frontmatter holds the decoded leading YAML block, nil when absent
	// or unparseable.
	Frontmatter map[string]interface{}

	// Tokens are the structural tokens in document order.
	Tokens []MarkdownToken
}

// Title returns the document title: the frontmatter "title" value when
// present, else the first level-1 heading, else "".
func (d *MarkdownDocument) Title() string {
	if d.Frontmatter != nil {
		if v, ok := d.Frontmatter["title"].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	for i := range d.Tokens {
		if d.Tokens[i].Kind == TokenHeading && d.Tokens[i].Level == 1 {
			return d.Tokens[i].Text
		}
	}
	return ""
}

// HasStructure reports whether the document contains anything beyond bare
// paragraphs; unstructured documents route to the sentence-split
// fallback strategy.
func (d *MarkdownDocument) HasStructure() bool {
	for i := range d.Tokens {
		switch d.Tokens[i].Kind {
		case TokenHeading, TokenList, TokenQuote, TokenTable:
			return true
		}
	}
	return false
}

// MarkdownSection is a heading-delimited run of tokens, the unit the
// fallback generator turns into one slide.
type MarkdownSection struct {
	// Heading is the section heading text; empty for content before the
	// first heading.
	Heading string

	// Level is the heading level that opened the section, 0 for leading
	// content.
	Level int

	// Tokens are the section's tokens, heading excluded.
	Tokens []MarkdownToken
}

// SplitSections groups tokens into sections at heading boundaries.
// Only the two shallowest heading levels present open new sections;
// deeper headings stay inside their section as plain tokens. Content
// before the first heading forms a leading section with an empty
// heading.
func SplitSections(tokens []MarkdownToken) []MarkdownSection {
	splitLevels := sectionLevels(tokens)

	var sections []MarkdownSection
	current := MarkdownSection{}
	flush := func() {
		if current.Heading != "" || len(current.Tokens) > 0 {
			sections = append(sections, current)
		}
	}

	for _, tok := range tokens {
		if tok.Kind == TokenHeading && splitLevels[tok.Level] {
			flush()
			current = MarkdownSection{Heading: tok.Text, Level: tok.Level}
			continue
		}
		current.Tokens = append(current.Tokens, tok)
	}
	flush()
	return sections
}

// sectionLevels returns the set of heading levels that open sections:
// the two shallowest levels the document actually uses.
func sectionLevels(tokens []MarkdownToken) map[int]bool {
	present := map[int]bool{}
	for i := range tokens {
		if tokens[i].Kind == TokenHeading {
			present[tokens[i].Level] = true
		}
	}

	levels := map[int]bool{}
	for level := 1; level <= 6 && len(levels) < 2; level++ {
		if present[level] {
			levels[level] = true
		}
	}
	return levels
}

// Bullets returns the items of all unordered lists in the section.
func (s *MarkdownSection) Bullets() []string {
	var out []string
	for i := range s.Tokens {
		if s.Tokens[i].Kind == TokenList && !s.Tokens[i].Ordered {
			out = append(out, s.Tokens[i].Items...)
		}
	}
	return out
}

// OrderedItems returns the items of all ordered lists in the section.
func (s *MarkdownSection) OrderedItems() []string {
	var out []string
	for i := range s.Tokens {
		if s.Tokens[i].Kind == TokenList && s.Tokens[i].Ordered {
			out = append(out, s.Tokens[i].Items...)
		}
	}
	return out
}

// Paragraphs returns the section's paragraph texts.
func (s *MarkdownSection) Paragraphs() []string {
	var out []string
	for i := range s.Tokens {
		if s.Tokens[i].Kind == TokenParagraph {
			out = append(out, s.Tokens[i].Text)
		}
	}
	return out
}

// FirstQuote returns the section's first quote token, nil when none.
func (s *MarkdownSection) FirstQuote() *MarkdownToken {
	for i := range s.Tokens {
		if s.Tokens[i].Kind == TokenQuote {
			return &s.Tokens[i]
		}
	}
	return nil
}

// FirstTable returns the section's first table token, nil when none.
func (s *MarkdownSection) FirstTable() *MarkdownToken {
	for i := range s.Tokens {
		if s.Tokens[i].Kind == TokenTable {
			return &s.Tokens[i]
		}
	}
	return nil
}
