package services

import (
	"strings"
	"unicode/utf8"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// Classification is the classifier's verdict for a position in the token
// stream. Confidence is reportable but never branched on; TokensConsumed
// is always at least one so callers make progress on any input.
type Classification struct {
	Type           entities.SlideType
	Confidence     float64
	TokensConsumed int
}

// Heuristic thresholds for the classification rules.
const (
	// maxSubtitleChars bounds the paragraph that may follow an H1 and
	// still read as a subtitle.
	maxSubtitleChars = 160

	// minQuoteChars is the shortest blockquote worth a quote slide when
	// no author is attached.
	minQuoteChars = 20
)

// ClassifyNext examines the token stream at pos and decides which slide
// type the next window of tokens should become. Rules are evaluated in
// fixed priority order and the first match wins; the rules overlap, so
// the order is part of the contract.
func ClassifyNext(tokens []entities.MarkdownToken, pos int) Classification {
	if pos < 0 || pos >= len(tokens) {
		return Classification{Type: entities.SlideTypeCardGrid, Confidence: 0.2, TokensConsumed: 1}
	}
	tok := &tokens[pos]

	// Rule 1: an H1 followed by nothing, a single short paragraph, or a
	// paragraph carrying presenter/date markers opens a title slide.
	if tok.Kind == entities.TokenHeading && tok.Level == 1 {
		if pos+1 >= len(tokens) {
			return Classification{Type: entities.SlideTypeTitle, Confidence: 0.95, TokensConsumed: 1}
		}
		if next := &tokens[pos+1]; next.Kind == entities.TokenParagraph {
			if containsPresenterMarker(next.Text) {
				return Classification{Type: entities.SlideTypeTitle, Confidence: 0.95, TokensConsumed: 2}
			}
			short := utf8.RuneCountInString(next.Text) <= maxSubtitleChars
			alone := pos+2 >= len(tokens) || tokens[pos+2].Kind == entities.TokenHeading
			if short && alone {
				return Classification{Type: entities.SlideTypeTitle, Confidence: 0.9, TokensConsumed: 2}
			}
		}
	}

	// Rule 4c: two adjacent headings, each followed by a list, read as a
	// comparison of the two headed options.
	if tok.Kind == entities.TokenHeading && pos+3 < len(tokens) &&
		tokens[pos+1].Kind == entities.TokenList &&
		tokens[pos+2].Kind == entities.TokenHeading &&
		tokens[pos+2].Level == tok.Level &&
		tokens[pos+3].Kind == entities.TokenList {
		return Classification{Type: entities.SlideTypeComparison, Confidence: 0.75, TokensConsumed: 4}
	}

	// The working window is the token itself, or the content block right
	// after it when the window opens with a heading.
	body := tok
	consumed := 1
	if tok.Kind == entities.TokenHeading && pos+1 < len(tokens) && tokens[pos+1].Kind != entities.TokenHeading {
		body = &tokens[pos+1]
		consumed = 2
	}

	switch body.Kind {
	case entities.TokenTable:
		// Rule 2.
		return Classification{Type: entities.SlideTypeTable, Confidence: 0.9, TokensConsumed: consumed}

	case entities.TokenQuote:
		// Rule 3.
		if utf8.RuneCountInString(body.Text) > minQuoteChars || body.Author != "" {
			return Classification{Type: entities.SlideTypeQuote, Confidence: 0.9, TokensConsumed: consumed}
		}

	case entities.TokenList:
		if c, ok := classifyList(body, consumed); ok {
			return c
		}
		// Default: a heading followed by a list reads as a card grid.
		conf := 0.4
		if consumed == 2 {
			conf = 0.5
		}
		return Classification{Type: entities.SlideTypeCardGrid, Confidence: conf, TokensConsumed: consumed}
	}

	// A lone heading reads as a low-confidence title.
	if tok.Kind == entities.TokenHeading {
		return Classification{Type: entities.SlideTypeTitle, Confidence: 0.3, TokensConsumed: 1}
	}

	// Everything else degrades to a card grid at the lowest confidence.
	return Classification{Type: entities.SlideTypeCardGrid, Confidence: 0.2, TokensConsumed: consumed}
}

// classifyList applies the list-specific rules 4-6 in priority order.
func classifyList(list *entities.MarkdownToken, consumed int) (Classification, bool) {
	flat := list.FlatText()

	// Rule 4: comparison keywords, or exactly two items each split into
	// a label and a description.
	if containsVersusKeyword(flat) {
		return Classification{Type: entities.SlideTypeComparison, Confidence: 0.75, TokensConsumed: consumed}, true
	}
	if len(list.Items) == 2 && hasLabelSeparator(list.Items[0]) && hasLabelSeparator(list.Items[1]) {
		return Classification{Type: entities.SlideTypeComparison, Confidence: 0.75, TokensConsumed: consumed}, true
	}

	// Rule 5: ordered sequences and step/phase vocabulary.
	if list.Ordered && len(list.Items) >= 3 {
		return Classification{Type: entities.SlideTypeTimeline, Confidence: 0.7, TokensConsumed: consumed}, true
	}
	if containsSequenceKeyword(flat) {
		return Classification{Type: entities.SlideTypeTimeline, Confidence: 0.7, TokensConsumed: consumed}, true
	}

	// Rule 6: small grids and label:description items.
	if len(list.Items) >= 2 && len(list.Items) <= 4 {
		return Classification{Type: entities.SlideTypeCardGrid, Confidence: 0.6, TokensConsumed: consumed}, true
	}
	if len(list.Items) > 0 && allHaveLabelSeparator(list.Items) {
		return Classification{Type: entities.SlideTypeCardGrid, Confidence: 0.6, TokensConsumed: consumed}, true
	}

	return Classification{}, false
}

// hasLabelSeparator reports whether an item reads as "label: description"
// or "label - description".
func hasLabelSeparator(item string) bool {
	if i := strings.Index(item, ":"); i > 0 && i < len(item)-1 {
		return true
	}
	if i := strings.Index(item, " - "); i > 0 {
		return true
	}
	return false
}

func allHaveLabelSeparator(items []string) bool {
	for _, it := range items {
		if !hasLabelSeparator(it) {
			return false
		}
	}
	return true
}
