package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// Truncation ceilings applied during normalization. Lengths are runes,
// the rest are element counts.
const (
	maxSubtitleLen    = 160
	maxCardItemLen    = 180
	maxCardItems      = 6
	maxComparePtLen   = 180
	maxComparePoints  = 5
	maxStepDescLen    = 240
	maxTimelineSteps  = 6
	maxQuoteLen       = 300
	maxTableRows      = 7
	maxComparisonAuto = 8
)

// NormalizeOptions carries the deck-level context for normalization.
type NormalizeOptions struct {
	// ProjectName seeds missing titles.
	ProjectName string

	// Locale selects the language of synthesized labels.
	Locale string

	// MaxSlides truncates the deck; zero means entities.MaxSlides.
	MaxSlides int
}

// NormalizeDeck coerces a draft slide list into a well-formed deck:
// every draft becomes one of the six slide types with defaults and
// truncation applied, a title slide is prepended when the first slide is
// not one, and the deck is cut at the slide ceiling. It never fails,
// whatever the drafts contain. Normalizing an already-normalized deck is
// a no-op.
func NormalizeDeck(drafts []entities.SlideDraft, opts NormalizeOptions) entities.Deck {
	maxSlides := opts.MaxSlides
	if maxSlides <= 0 {
		maxSlides = entities.MaxSlides
	}

	slides := make([]entities.Slide, 0, len(drafts)+1)
	for _, d := range drafts {
		slides = append(slides, NormalizeSlide(d, opts))
	}

	if len(slides) == 0 || slides[0].Type != entities.SlideTypeTitle {
		title := strings.TrimSpace(opts.ProjectName)
		if title == "" {
			title = untitledProject(opts.Locale)
		}
		slides = append([]entities.Slide{entities.NewTitleSlide(title, "")}, slides...)
	}

	if len(slides) > maxSlides {
		slides = slides[:maxSlides]
	}
	return entities.Deck{Slides: slides}
}

// NormalizeSlide coerces one draft into its slide type's fixed shape.
// Unknown types and garbage content degrade to a card-grid shell.
func NormalizeSlide(d entities.SlideDraft, opts NormalizeOptions) entities.Slide {
	t, known := entities.ParseSlideType(d.Type)
	if !known {
		t = entities.SlideTypeCardGrid
	}

	switch t {
	case entities.SlideTypeTitle:
		return normalizeTitle(d.Content, opts)
	case entities.SlideTypeComparison:
		return normalizeComparison(d.Content, opts)
	case entities.SlideTypeTimeline:
		return normalizeTimeline(d.Content, opts)
	case entities.SlideTypeQuote:
		return normalizeQuote(d.Content, opts)
	case entities.SlideTypeTable:
		return normalizeTable(d.Content, opts)
	default:
		return normalizeCardGrid(d.Content, opts)
	}
}

func normalizeTitle(m map[string]interface{}, opts NormalizeOptions) entities.Slide {
	text := stringField(m, "title", "text", "heading")
	if text == "" {
		text = strings.TrimSpace(opts.ProjectName)
	}
	if text == "" {
		text = untitledProject(opts.Locale)
	}
	subtitle := truncateText(stringField(m, "subtitle", "description", "tagline"), maxSubtitleLen)
	return entities.NewTitleSlide(text, subtitle)
}

func normalizeCardGrid(m map[string]interface{}, _ NormalizeOptions) entities.Slide {
	title := stringField(m, "title", "heading")
	items := stringSliceField(m, "items", "points", "cards", "bullets", "content")
	if len(items) == 0 && title != "" {
		// A grid with no cards still renders something readable.
		items = []string{title}
	}
	if len(items) > maxCardItems {
		items = items[:maxCardItems]
	}
	for i := range items {
		items[i] = truncateText(items[i], maxCardItemLen)
	}
	return entities.NewCardGridSlide(title, items)
}

func normalizeComparison(m map[string]interface{}, opts NormalizeOptions) entities.Slide {
	title := stringField(m, "title", "heading")
	leftTitle, rightTitle := optionTitles(opts.Locale)

	left := sideField(m, "left")
	right := sideField(m, "right")

	// A flat item list with no explicit sides splits down the middle.
	if len(left.Points) == 0 && len(right.Points) == 0 {
		items := stringSliceField(m, "items", "points")
		if len(items) > maxComparisonAuto {
			items = items[:maxComparisonAuto]
		}
		half := (len(items) + 1) / 2
		left.Points = items[:half]
		right.Points = items[half:]
	}

	if left.Title == "" {
		left.Title = leftTitle
	}
	if right.Title == "" {
		right.Title = rightTitle
	}
	if len(left.Points) > maxComparePoints {
		left.Points = left.Points[:maxComparePoints]
	}
	if len(right.Points) > maxComparePoints {
		right.Points = right.Points[:maxComparePoints]
	}
	for i := range left.Points {
		left.Points[i] = truncateText(left.Points[i], maxComparePtLen)
	}
	for i := range right.Points {
		right.Points[i] = truncateText(right.Points[i], maxComparePtLen)
	}
	return entities.NewComparisonSlide(title, left, right)
}

func sideField(m map[string]interface{}, key string) entities.ComparisonSide {
	side, ok := m[key].(map[string]interface{})
	if !ok {
		// Sides sometimes arrive as bare string lists.
		return entities.ComparisonSide{Points: stringSliceField(m, key)}
	}
	return entities.ComparisonSide{
		Title:  stringField(side, "title", "name", "heading"),
		Points: stringSliceField(side, "points", "items", "content"),
	}
}

func normalizeTimeline(m map[string]interface{}, opts NormalizeOptions) entities.Slide {
	title := stringField(m, "title", "heading")

	var steps []entities.TimelineStep
	raw := firstPresent(m, "steps", "items", "events", "phases")
	for _, entry := range anySlice(raw) {
		switch v := entry.(type) {
		case string:
			steps = append(steps, entities.TimelineStep{Description: strings.TrimSpace(v)})
		case map[string]interface{}:
			steps = append(steps, entities.TimelineStep{
				Title:       stringField(v, "title", "name", "label"),
				Description: stringField(v, "description", "text", "detail", "content"),
			})
		case entities.TimelineStep:
			steps = append(steps, v)
		}
	}

	if len(steps) > maxTimelineSteps {
		steps = steps[:maxTimelineSteps]
	}
	for i := range steps {
		if strings.TrimSpace(steps[i].Title) == "" {
			steps[i].Title = stepTitle(opts.Locale, i+1)
		}
		steps[i].Description = truncateText(steps[i].Description, maxStepDescLen)
	}
	return entities.NewTimelineSlide(title, steps)
}

func normalizeQuote(m map[string]interface{}, opts NormalizeOptions) entities.Slide {
	text := stringField(m, "quote", "text", "content")
	if text == "" {
		text = cannedQuote(opts.Locale)
	}
	author := stringField(m, "author", "attribution", "by", "source")
	return entities.NewQuoteSlide(truncateText(text, maxQuoteLen), author)
}

func normalizeTable(m map[string]interface{}, opts NormalizeOptions) entities.Slide {
	title := stringField(m, "title", "heading")
	headers := stringSliceField(m, "headers", "columns")
	rows := rowsField(m, "rows", "data")

	// Headers derive from the widest row when absent.
	if len(headers) == 0 {
		width := 0
		for _, r := range rows {
			if len(r) > width {
				width = len(r)
			}
		}
		for i := 1; i <= width; i++ {
			headers = append(headers, columnLabel(opts.Locale, i))
		}
	}

	// A table needs two columns to be a table; anything narrower reads
	// better as cards.
	if len(headers) < 2 {
		var items []string
		items = append(items, headers...)
		for _, r := range rows {
			items = append(items, r...)
		}
		return normalizeCardGrid(map[string]interface{}{
			"title": title,
			"items": items,
		}, NormalizeOptions{Locale: opts.Locale})
	}

	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	for i, r := range rows {
		rows[i] = padRow(r, len(headers))
	}
	return entities.NewTableSlide(title, headers, rows)
}

func columnLabel(locale string, n int) string {
	if isKorean(locale) {
		return fmt.Sprintf("열 %d", n)
	}
	return fmt.Sprintf("Column %d", n)
}

func padRow(row []string, width int) []string {
	if len(row) > width {
		return row[:width]
	}
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

// truncateText cuts s to at most n runes, replacing the final rune with
// an ellipsis when a cut happened, so the result length is exactly n and
// re-truncation is a no-op.
func truncateText(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

// Coercion helpers. AI drafts arrive as JSON-decoded interface{} values;
// fallback drafts carry native Go slices. Both shapes are accepted.

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}

func stringSliceField(m map[string]interface{}, keys ...string) []string {
	raw := firstPresent(m, keys...)
	if raw == nil {
		return nil
	}

	// A bare string splits on newlines.
	if s, ok := raw.(string); ok {
		var out []string
		for _, line := range strings.Split(s, "\n") {
			if t := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• ")); t != "" {
				out = append(out, t)
			}
		}
		return out
	}

	var out []string
	for _, entry := range anySlice(raw) {
		switch v := entry.(type) {
		case string:
			if t := strings.TrimSpace(v); t != "" {
				out = append(out, t)
			}
		case map[string]interface{}:
			// Items like {"title": ..., "description": ...} flatten to
			// "title: description".
			title := stringField(v, "title", "name", "label")
			desc := stringField(v, "description", "text", "detail", "content")
			switch {
			case title != "" && desc != "":
				out = append(out, title+": "+desc)
			case title != "":
				out = append(out, title)
			case desc != "":
				out = append(out, desc)
			}
		case float64:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

func rowsField(m map[string]interface{}, keys ...string) [][]string {
	raw := firstPresent(m, keys...)
	if raw == nil {
		return nil
	}

	var rows [][]string
	for _, entry := range anySlice(raw) {
		switch v := entry.(type) {
		case []string:
			rows = append(rows, append([]string(nil), v...))
		case []interface{}:
			var row []string
			for _, cell := range v {
				row = append(row, strings.TrimSpace(fmt.Sprintf("%v", cell)))
			}
			rows = append(rows, row)
		case string:
			rows = append(rows, []string{strings.TrimSpace(v)})
		}
	}
	return rows
}

// anySlice widens the slice shapes coercion sees into []interface{}.
func anySlice(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []entities.TimelineStep:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}
