package entities

import "strings"

// SourceType identifies where a generation request's text came from.
type SourceType string

const (
	SourceTypeURL      SourceType = "url"
	SourceTypeMarkdown SourceType = "markdown"
	SourceTypePDF      SourceType = "pdf"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeURL, SourceTypeMarkdown, SourceTypePDF:
		return true
	default:
		return false
	}
}

// ResolvedSource is the immutable output of input resolution: the cleaned
// source text plus enough context to label the generation. Created once
// per request and never mutated afterwards.
type ResolvedSource struct {
	// Text is the sanitized source text, clamped to the character budget.
	Text string `json:"text"`

	// Label names the source for humans: the URL, the file name, or
	// "markdown" for inline input.
	Label string `json:"label"`

	// NameHint is the suggested project name derived from the request,
	// the URL, the file name, or the first heading.
	NameHint string `json:"nameHint"`

	// Type records which ingestion path produced the text.
	Type SourceType `json:"type"`
}

// HasText reports whether resolution produced any usable text.
func (s *ResolvedSource) HasText() bool {
	return strings.TrimSpace(s.Text) != ""
}
