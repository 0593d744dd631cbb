package extract

import (
	stdhtml "html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// minCandidateChars is how much text a content container must hold
// before it wins over the whole body.
const minCandidateChars = 200

// strippedTags are removed wholesale before text extraction: chrome and
// non-content markup that would otherwise pollute the deck.
var strippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"iframe":   true,
	"svg":      true,
	"form":     true,
	"button":   true,
	"noscript": true,
}

// blockTags get a line break after their content so sentences from
// different blocks never run together.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "figcaption": true, "dt": true, "dd": true,
}

var htmlTagPattern = regexp.MustCompile(`(?i)</?(?:html|head|body|div|p|br|span|a|ul|ol|li|h[1-6]|table|article|main|section|img|meta|title)\b[^>]*>`)

// LooksLikeHTML reports whether text is markup rather than prose. Only
// the head of the document is inspected so prose that quotes a tag deep
// in the body stays prose.
func LooksLikeHTML(s string) bool {
	head := s
	if len(head) > 2048 {
		head = head[:2048]
	}
	trimmed := strings.ToLower(strings.TrimSpace(head))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}
	return htmlTagPattern.MatchString(head)
}

// Page is what the extractor recovers from an HTML document.
type Page struct {
	// Title is the document title, empty when the page declares none.
	Title string

	// Description is the meta description, empty when absent.
	Description string

	// Body is the main content as plain text, one line per block.
	Body string
}

// Text joins the page parts in reading order for the pipeline.
func (p Page) Text() string {
	var parts []string
	if p.Title != "" {
		parts = append(parts, p.Title)
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if p.Body != "" {
		parts = append(parts, p.Body)
	}
	return strings.Join(parts, "\n\n")
}

// HTMLExtractor recovers readable text from web pages. It prefers the
// page's declared content container and falls back to the whole body.
type HTMLExtractor struct {
	policy *bluemonday.Policy
}

// NewHTMLExtractor creates an extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{policy: bluemonday.StrictPolicy()}
}

// Extract never fails: when the DOM parse errors the sanitizer strips
// tags instead, so some text always comes back.
func (e *HTMLExtractor) Extract(src string) Page {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return Page{Body: collapseLines(stdhtml.UnescapeString(e.policy.Sanitize(src)))}
	}

	prune(doc)

	page := Page{
		Title:       pageTitle(doc),
		Description: metaContent(doc, "description", "og:description"),
	}

	for _, match := range contentMatchers() {
		node := findFirst(doc, match)
		if node == nil {
			continue
		}
		if text := blockText(node); utf8.RuneCountInString(text) > minCandidateChars {
			page.Body = text
			break
		}
	}
	if page.Body == "" {
		root := findFirst(doc, matchTag("body"))
		if root == nil {
			root = doc
		}
		page.Body = blockText(root)
	}
	return page
}

// contentMatchers returns the content container candidates in priority
// order: article, main, .content, .post, .article, #content.
func contentMatchers() []func(*html.Node) bool {
	return []func(*html.Node) bool{
		matchTag("article"),
		matchTag("main"),
		matchClass("content"),
		matchClass("post"),
		matchClass("article"),
		matchID("content"),
	}
}

func matchTag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func matchClass(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, class := range strings.Fields(attrValue(n, "class")) {
			if strings.EqualFold(class, name) {
				return true
			}
		}
		return false
	}
}

func matchID(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(attrValue(n, "id"), name)
	}
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

// prune removes comments and stripped elements in place.
func prune(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && strippedTags[c.Data]) {
			n.RemoveChild(c)
			continue
		}
		prune(c)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func pageTitle(doc *html.Node) string {
	if n := findFirst(doc, matchTag("title")); n != nil {
		if title := collapseLines(textOnly(n)); title != "" {
			return title
		}
	}
	if n := findFirst(doc, matchTag("h1")); n != nil {
		return collapseLines(textOnly(n))
	}
	return ""
}

// metaContent returns the content attribute of the first meta tag whose
// name or property matches any of the given keys.
func metaContent(doc *html.Node, keys ...string) string {
	var found string
	findFirst(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return false
		}
		name := attrValue(n, "name")
		if name == "" {
			name = attrValue(n, "property")
		}
		for _, key := range keys {
			if strings.EqualFold(name, key) {
				if content := strings.TrimSpace(attrValue(n, "content")); content != "" {
					found = content
					return true
				}
			}
		}
		return false
	})
	return found
}

func textOnly(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// blockText flattens a subtree to plain text with one line per block
// element.
func blockText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && node.Data == "br" {
			sb.WriteByte('\n')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && blockTags[node.Data] {
			sb.WriteByte('\n')
		}
	}
	walk(n)
	return collapseLines(sb.String())
}

// collapseLines normalizes extracted text: whitespace runs collapse to
// single spaces and empty lines disappear.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
