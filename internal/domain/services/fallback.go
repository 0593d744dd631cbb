package services

import (
	"strings"
	"unicode/utf8"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// Fallback generation limits.
const (
	// MaxFallbackContentSlides caps the per-section slides the markdown
	// strategy emits.
	MaxFallbackContentSlides = 8

	// maxSummaryPoints caps the summary card-grid.
	maxSummaryPoints = 6

	// minSentenceChars filters noise out of sentence splitting.
	minSentenceChars = 20

	// maxSentencePool bounds how many sentences seed slides.
	maxSentencePool = 24
)

// FallbackDrafts builds a deterministic deck draft from the resolved
// source. Markdown sources get the section strategy; URL, PDF, and plain
// text get the sentence strategy. The result still goes through the
// normalizer and count repair, so this only has to produce sensible raw
// material, never a finished deck. Same input, same output — there is no
// randomness anywhere in this path.
func FallbackDrafts(source entities.ResolvedSource, doc entities.MarkdownDocument, projectName, locale string) []entities.SlideDraft {
	if source.Type == entities.SourceTypeMarkdown && doc.HasStructure() {
		return sectionDrafts(doc, projectName, locale)
	}
	return sentenceDrafts(source.Text, projectName, locale)
}

// sectionDrafts turns a structured markdown document into one slide per
// heading-delimited section, framed by a title slide, a summary
// card-grid, and an optional closing quote.
func sectionDrafts(doc entities.MarkdownDocument, projectName, locale string) []entities.SlideDraft {
	sections := entities.SplitSections(doc.Tokens)

	drafts := []entities.SlideDraft{titleDraft(doc, projectName)}

	if summary := collectSummaryPoints(sections); len(summary) > 0 {
		drafts = append(drafts, newDraft(entities.SlideTypeCardGrid, map[string]interface{}{
			"title": overviewTitle(locale),
			"items": summary,
		}))
	}

	quoteUsed := false
	content := 0
	for i := range sections {
		if content >= MaxFallbackContentSlides {
			break
		}
		draft, ok := sectionDraft(&sections[i], locale)
		if !ok {
			continue
		}
		if draft.Type == string(entities.SlideTypeQuote) {
			quoteUsed = true
		}
		drafts = append(drafts, draft)
		content++
	}

	if !quoteUsed {
		if q := firstQuoteToken(doc.Tokens); q != nil {
			drafts = append(drafts, newDraft(entities.SlideTypeQuote, map[string]interface{}{
				"quote":  q.Text,
				"author": q.Author,
			}))
		}
	}

	return drafts
}

// sentenceDrafts builds a deck draft from unstructured text: title,
// summary, then comparison and timeline slides when enough points exist,
// closed by a quote of the first point.
func sentenceDrafts(text, projectName, locale string) []entities.SlideDraft {
	points := sentencePool(text)

	drafts := []entities.SlideDraft{newDraft(entities.SlideTypeTitle, map[string]interface{}{
		"title": projectName,
	})}

	summary := points
	if len(summary) > maxSummaryPoints {
		summary = summary[:maxSummaryPoints]
	}
	if len(summary) > 0 {
		drafts = append(drafts, newDraft(entities.SlideTypeCardGrid, map[string]interface{}{
			"title": overviewTitle(locale),
			"items": summary,
		}))
	}

	if len(points) >= 4 {
		drafts = append(drafts, newDraft(entities.SlideTypeComparison, map[string]interface{}{
			"items": points,
		}))
	}

	if len(points) >= 3 {
		steps := points
		if len(steps) > denseItemCount {
			steps = steps[:denseItemCount]
		}
		drafts = append(drafts, newDraft(entities.SlideTypeTimeline, map[string]interface{}{
			"items": steps,
		}))
	}

	closing := ""
	if len(points) > 0 {
		closing = points[0]
	}
	drafts = append(drafts, newDraft(entities.SlideTypeQuote, map[string]interface{}{
		"quote": closing,
	}))

	return drafts
}

// titleDraft builds the opening slide: project name headlined, the first
// paragraph or heading as subtitle.
func titleDraft(doc entities.MarkdownDocument, projectName string) entities.SlideDraft {
	subtitle := ""
	for i := range doc.Tokens {
		if doc.Tokens[i].Kind == entities.TokenParagraph {
			subtitle = doc.Tokens[i].Text
			break
		}
	}
	if subtitle == "" {
		for i := range doc.Tokens {
			if doc.Tokens[i].Kind == entities.TokenHeading && doc.Tokens[i].Text != projectName {
				subtitle = doc.Tokens[i].Text
				break
			}
		}
	}
	return newDraft(entities.SlideTypeTitle, map[string]interface{}{
		"title":    projectName,
		"subtitle": subtitle,
	})
}

// collectSummaryPoints gathers deduplicated bullet, ordered, and
// sentence points across all sections.
func collectSummaryPoints(sections []entities.MarkdownSection) []string {
	var points []string
	for i := range sections {
		s := &sections[i]
		points = append(points, s.Bullets()...)
		points = append(points, s.OrderedItems()...)
		if len(s.Bullets()) == 0 && len(s.OrderedItems()) == 0 {
			for _, p := range s.Paragraphs() {
				points = append(points, SplitSentences(p, minSentenceChars)...)
			}
		}
	}
	points = DedupeStrings(points)
	if len(points) > maxSummaryPoints {
		points = points[:maxSummaryPoints]
	}
	return points
}

// sectionDraft converts one section into a slide draft using the
// classifier's priority order: table, comparison, timeline, quote,
// card-grid.
func sectionDraft(s *entities.MarkdownSection, locale string) (entities.SlideDraft, bool) {
	if t := s.FirstTable(); t != nil {
		return newDraft(entities.SlideTypeTable, map[string]interface{}{
			"title":   s.Heading,
			"headers": t.Headers,
			"rows":    t.Rows,
		}), true
	}

	bullets := s.Bullets()
	ordered := s.OrderedItems()
	points := append(append([]string(nil), bullets...), ordered...)
	flat := s.Heading + " " + strings.Join(points, " ")

	if len(points) > 0 && containsVersusKeyword(flat) {
		return newDraft(entities.SlideTypeComparison, map[string]interface{}{
			"title": s.Heading,
			"items": points,
		}), true
	}

	if len(ordered) >= 3 || (len(points) > 0 && containsSequenceKeyword(flat)) {
		steps := ordered
		if len(steps) == 0 {
			steps = bullets
		}
		return newDraft(entities.SlideTypeTimeline, map[string]interface{}{
			"title": s.Heading,
			"items": steps,
		}), true
	}

	if q := s.FirstQuote(); q != nil && (utf8.RuneCountInString(q.Text) > minQuoteChars || q.Author != "") {
		return newDraft(entities.SlideTypeQuote, map[string]interface{}{
			"quote":  q.Text,
			"author": q.Author,
		}), true
	}

	if len(points) == 0 {
		for _, p := range s.Paragraphs() {
			points = append(points, SplitSentences(p, minSentenceChars)...)
		}
	}
	if len(points) == 0 && s.Heading == "" {
		return entities.SlideDraft{}, false
	}

	title := s.Heading
	if title == "" {
		title = keyPointsTitle(locale)
	}
	return newDraft(entities.SlideTypeCardGrid, map[string]interface{}{
		"title": title,
		"items": points,
	}), true
}

// sentencePool splits text into the capped, deduplicated sentence list
// that seeds fallback and repair slides.
func sentencePool(text string) []string {
	points := DedupeStrings(SplitSentences(text, minSentenceChars))
	if len(points) > maxSentencePool {
		points = points[:maxSentencePool]
	}
	return points
}

func firstQuoteToken(tokens []entities.MarkdownToken) *entities.MarkdownToken {
	for i := range tokens {
		if tokens[i].Kind == entities.TokenQuote {
			return &tokens[i]
		}
	}
	return nil
}

func newDraft(t entities.SlideType, content map[string]interface{}) entities.SlideDraft {
	return entities.SlideDraft{Type: string(t), Content: content}
}
