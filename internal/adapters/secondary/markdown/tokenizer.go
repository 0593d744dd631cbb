package markdown

import (
	"bytes"
	stdhtml "html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// maxAuthorRunes bounds how much trailing text an attribution dash may
// claim; anything longer is part of the quote itself.
const maxAuthorRunes = 80

// GoldmarkTokenizer turns markdown into the flat structural token stream
// the pipeline classifies. It never fails: malformed input still parses
// as some sequence of blocks, and blocks it does not model degrade to
// paragraphs.
type GoldmarkTokenizer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewGoldmarkTokenizer creates a GFM-capable tokenizer.
func NewGoldmarkTokenizer() *GoldmarkTokenizer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // tables, strikethrough, task lists
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	return &GoldmarkTokenizer{
		md:     md,
		policy: bluemonday.StrictPolicy(),
	}
}

// Tokenize parses source into a document. Frontmatter is split off
// first; the remainder is walked block by block.
func (t *GoldmarkTokenizer) Tokenize(source string) entities.MarkdownDocument {
	frontmatter, body := splitFrontmatter([]byte(source))

	root := t.md.Parser().Parse(text.NewReader(body))

	var tokens []entities.MarkdownToken
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		if tok, ok := t.blockToken(node, body); ok {
			tokens = append(tokens, tok)
		}
	}

	return entities.MarkdownDocument{
		Frontmatter: frontmatter,
		Tokens:      tokens,
	}
}

// blockToken converts one top-level block node. The second return is
// false for blocks with no content worth keeping.
func (t *GoldmarkTokenizer) blockToken(node ast.Node, src []byte) (entities.MarkdownToken, bool) {
	switch n := node.(type) {
	case *ast.Heading:
		txt := inlineText(n, src)
		if txt == "" {
			return entities.MarkdownToken{}, false
		}
		return entities.MarkdownToken{Kind: entities.TokenHeading, Level: n.Level, Text: txt}, true

	case *ast.List:
		items := listItems(n, src)
		if len(items) == 0 {
			return entities.MarkdownToken{}, false
		}
		return entities.MarkdownToken{Kind: entities.TokenList, Ordered: n.IsOrdered(), Items: items}, true

	case *ast.Blockquote:
		return quoteToken(n, src)

	case *ast.FencedCodeBlock:
		return entities.MarkdownToken{
			Kind: entities.TokenCode,
			Lang: string(n.Language(src)),
			Text: rawLines(n, src),
		}, true

	case *ast.CodeBlock:
		return entities.MarkdownToken{Kind: entities.TokenCode, Text: rawLines(n, src)}, true

	case *ast.ThematicBreak:
		return entities.MarkdownToken{Kind: entities.TokenRule}, true

	case *extast.Table:
		return tableToken(n, src)

	case *ast.HTMLBlock:
		// Raw HTML degrades to its visible text.
		stripped := strings.TrimSpace(stdhtml.UnescapeString(t.policy.Sanitize(rawLines(n, src))))
		if stripped == "" {
			return entities.MarkdownToken{}, false
		}
		return entities.MarkdownToken{Kind: entities.TokenParagraph, Text: stripped}, true

	default:
		// Paragraphs and anything unmodeled degrade to a paragraph.
		txt := inlineText(node, src)
		if txt == "" {
			return entities.MarkdownToken{}, false
		}
		return entities.MarkdownToken{Kind: entities.TokenParagraph, Text: txt}, true
	}
}

// quoteToken flattens a blockquote and splits off a trailing em-dash
// attribution when one is present, either on its own line or at the end
// of the quote text.
func quoteToken(n *ast.Blockquote, src []byte) (entities.MarkdownToken, bool) {
	var lines []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := inlineText(c, src); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return entities.MarkdownToken{}, false
	}

	body, author := splitAttribution(lines)
	return entities.MarkdownToken{Kind: entities.TokenQuote, Text: body, Author: author}, true
}

// attribution dashes recognized at the start of a line or mid-line with
// surrounding spaces.
var attributionDashes = []string{"—", "–", "--"}

// splitAttribution separates quote text from its author. A final block
// that starts with a dash is a pure attribution line; otherwise the text
// is scanned for the last spaced dash.
func splitAttribution(lines []string) (string, string) {
	last := lines[len(lines)-1]
	if len(lines) > 1 {
		for _, dash := range attributionDashes {
			if strings.HasPrefix(last, dash) {
				author := strings.TrimSpace(strings.TrimPrefix(last, dash))
				if author != "" && utf8.RuneCountInString(author) <= maxAuthorRunes {
					return trimQuoteMarks(strings.Join(lines[:len(lines)-1], " ")), author
				}
			}
		}
	}

	joined := strings.Join(lines, " ")
	for _, dash := range attributionDashes {
		sep := " " + dash + " "
		if idx := strings.LastIndex(joined, sep); idx > 0 {
			author := strings.TrimSpace(joined[idx+len(sep):])
			if author != "" && utf8.RuneCountInString(author) <= maxAuthorRunes {
				return trimQuoteMarks(strings.TrimSpace(joined[:idx])), author
			}
		}
	}
	return trimQuoteMarks(joined), ""
}

// quote mark pairs stripped when they wrap the whole quote.
var quoteMarkPairs = [][2]string{
	{"\"", "\""},
	{"“", "”"},
	{"「", "」"},
}

func trimQuoteMarks(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range quoteMarkPairs {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) > len(pair[0])+len(pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

// tableToken converts a GFM table. Tables with fewer than two columns
// carry no comparison value and degrade to a paragraph of their cells.
func tableToken(n *extast.Table, src []byte) (entities.MarkdownToken, bool) {
	tok := entities.MarkdownToken{Kind: entities.TokenTable}

	for _, a := range n.Alignments {
		tok.Alignments = append(tok.Alignments, alignmentName(a))
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch row := c.(type) {
		case *extast.TableHeader:
			tok.Headers = cellTexts(row, src)
		case *extast.TableRow:
			tok.Rows = append(tok.Rows, cellTexts(row, src))
		}
	}

	if len(tok.Headers) < 2 && len(tok.Rows) == 0 {
		return entities.MarkdownToken{}, false
	}
	if len(tok.Headers) < 2 {
		flat := tok.Headers
		for _, row := range tok.Rows {
			flat = append(flat, row...)
		}
		txt := strings.TrimSpace(strings.Join(flat, " "))
		if txt == "" {
			return entities.MarkdownToken{}, false
		}
		return entities.MarkdownToken{Kind: entities.TokenParagraph, Text: txt}, true
	}
	return tok, true
}

func alignmentName(a extast.Alignment) string {
	switch a {
	case extast.AlignLeft:
		return "left"
	case extast.AlignCenter:
		return "center"
	case extast.AlignRight:
		return "right"
	default:
		return ""
	}
}

func cellTexts(row ast.Node, src []byte) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, inlineText(c, src))
	}
	return cells
}

// listItems flattens every list item to one string. Nested sub-lists
// fold into their parent item after a colon so item counts reflect the
// top-level structure.
func listItems(list *ast.List, src []byte) []string {
	var items []string
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		var parts, nested []string
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, listItems(sub, src)...)
				continue
			}
			if s := inlineText(c, src); s != "" {
				parts = append(parts, s)
			}
		}
		item := strings.Join(parts, " ")
		if len(nested) > 0 {
			if item == "" {
				item = strings.Join(nested, ", ")
			} else {
				item += ": " + strings.Join(nested, ", ")
			}
		}
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// inlineText flattens a node's inline content to plain text. Soft and
// hard line breaks become single spaces; runs of whitespace collapse.
func inlineText(node ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
			return
		case *ast.String:
			sb.Write(v.Value)
			return
		case *ast.AutoLink:
			sb.Write(v.URL(src))
			return
		case *ast.RawHTML:
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// rawLines reassembles a block's literal source lines, used for code
// blocks and raw HTML.
func rawLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// splitFrontmatter peels a leading YAML block off the document. Content
// that merely looks like frontmatter but fails to decode stays in the
// body untouched.
func splitFrontmatter(content []byte) (map[string]interface{}, []byte) {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, content
	}

	lines := bytes.Split(content, []byte("\n"))
	end := -1
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, content
	}

	block := bytes.Join(lines[1:end], []byte("\n"))
	if len(bytes.TrimSpace(block)) == 0 {
		return nil, bytes.Join(lines[end+1:], []byte("\n"))
	}

	var frontmatter map[string]interface{}
	if err := yaml.Unmarshal(block, &frontmatter); err != nil {
		return nil, content
	}
	return frontmatter, bytes.Join(lines[end+1:], []byte("\n"))
}
