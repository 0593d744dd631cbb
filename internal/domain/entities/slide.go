package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SlideType identifies one of the closed set of slide layouts a deck can
// contain. The set is fixed; adding a layout means touching every switch
// over SlideType, which is intentional.
type SlideType string

const (
	SlideTypeTitle      SlideType = "title"
	SlideTypeCardGrid   SlideType = "card-grid"
	SlideTypeComparison SlideType = "comparison"
	SlideTypeTimeline   SlideType = "timeline"
	SlideTypeQuote      SlideType = "quote"
	SlideTypeTable      SlideType = "table"
)

// Deck size bounds enforced after count repair.
const (
	MinSlides = 5
	MaxSlides = 12
)

// AllSlideTypes returns every valid slide type.
func AllSlideTypes() []SlideType {
	return []SlideType{
		SlideTypeTitle,
		SlideTypeCardGrid,
		SlideTypeComparison,
		SlideTypeTimeline,
		SlideTypeQuote,
		SlideTypeTable,
	}
}

// ParseSlideType maps a raw string to a SlideType. Unknown, empty, or
// garbage input maps to card-grid with ok == false; callers that care
// about strictness check ok, everyone else gets a renderable type.
func ParseSlideType(raw string) (SlideType, bool) {
	switch SlideType(strings.TrimSpace(strings.ToLower(raw))) {
	case SlideTypeTitle:
		return SlideTypeTitle, true
	case SlideTypeCardGrid:
		return SlideTypeCardGrid, true
	case SlideTypeComparison:
		return SlideTypeComparison, true
	case SlideTypeTimeline:
		return SlideTypeTimeline, true
	case SlideTypeQuote:
		return SlideTypeQuote, true
	case SlideTypeTable:
		return SlideTypeTable, true
	default:
		return SlideTypeCardGrid, false
	}
}

// Valid reports whether t is one of the six known types.
func (t SlideType) Valid() bool {
	_, ok := ParseSlideType(string(t))
	return ok && SlideType(strings.ToLower(string(t))) == t
}

// IsBody reports whether the type counts as a content-bearing body slide
// for scoring purposes. Title and quote slides frame a deck; the rest
// carry its substance.
func (t SlideType) IsBody() bool {
	switch t {
	case SlideTypeCardGrid, SlideTypeComparison, SlideTypeTimeline, SlideTypeTable:
		return true
	default:
		return false
	}
}

// TitleSlide opens a deck with the project name and an optional subtitle.
type TitleSlide struct {
	// Text is the headline, usually the project name.
	Text string `json:"title"`

	// Subtitle is an optional strapline under the headline.
	Subtitle string `json:"subtitle,omitempty"`
}

// CardGridSlide presents short points as a grid of cards.
type CardGridSlide struct {
	// Title is the optional slide heading.
	Title string `json:"title,omitempty"`

	// Items are the card texts, at most six per slide.
	Items []string `json:"items"`
}

// ComparisonSide is one column of a comparison slide.
type ComparisonSide struct {
	// Title names the option this side describes.
	Title string `json:"title"`

	// Points are the option's attributes.
	Points []string `json:"points"`
}

// ComparisonSlide contrasts two options side by side.
type ComparisonSlide struct {
	// Title is the optional slide heading.
	Title string `json:"title,omitempty"`

	// Left and Right are the two compared columns.
	Left  ComparisonSide `json:"left"`
	Right ComparisonSide `json:"right"`
}

// TimelineStep is one entry of a timeline slide.
type TimelineStep struct {
	// Title is the step label, e.g. "Step 1".
	Title string `json:"title"`

	// Description is the step body text.
	Description string `json:"description"`
}

// TimelineSlide lays out an ordered sequence of steps.
type TimelineSlide struct {
	// Title is the optional slide heading.
	Title string `json:"title,omitempty"`

	// Steps are the ordered entries.
	Steps []TimelineStep `json:"steps"`
}

// QuoteSlide shows a single quotation with optional attribution.
type QuoteSlide struct {
	// Text is the quoted sentence.
	Text string `json:"quote"`

	// Author is the attribution, empty when unknown.
	Author string `json:"author,omitempty"`
}

// TableSlide renders tabular data.
type TableSlide struct {
	// Title is the optional slide heading.
	Title string `json:"title,omitempty"`

	// Headers are the column names; always at least two.
	Headers []string `json:"headers"`

	// Rows are the body rows, each padded to the header width.
	Rows [][]string `json:"rows"`
}

// Slide is a tagged union over the six slide layouts. Exactly one payload
// pointer is set and it matches Type; constructors below maintain this.
type Slide struct {
	Type       SlideType
	Title      *TitleSlide
	Cards      *CardGridSlide
	Comparison *ComparisonSlide
	Timeline   *TimelineSlide
	Quote      *QuoteSlide
	Table      *TableSlide
}

// NewTitleSlide builds a title slide.
func NewTitleSlide(text, subtitle string) Slide {
	return Slide{Type: SlideTypeTitle, Title: &TitleSlide{Text: text, Subtitle: subtitle}}
}

// NewCardGridSlide builds a card-grid slide.
func NewCardGridSlide(title string, items []string) Slide {
	return Slide{Type: SlideTypeCardGrid, Cards: &CardGridSlide{Title: title, Items: items}}
}

// NewComparisonSlide builds a comparison slide.
func NewComparisonSlide(title string, left, right ComparisonSide) Slide {
	return Slide{Type: SlideTypeComparison, Comparison: &ComparisonSlide{Title: title, Left: left, Right: right}}
}

// NewTimelineSlide builds a timeline slide.
func NewTimelineSlide(title string, steps []TimelineStep) Slide {
	return Slide{Type: SlideTypeTimeline, Timeline: &TimelineSlide{Title: title, Steps: steps}}
}

// NewQuoteSlide builds a quote slide.
func NewQuoteSlide(text, author string) Slide {
	return Slide{Type: SlideTypeQuote, Quote: &QuoteSlide{Text: text, Author: author}}
}

// NewTableSlide builds a table slide.
func NewTableSlide(title string, headers []string, rows [][]string) Slide {
	return Slide{Type: SlideTypeTable, Table: &TableSlide{Title: title, Headers: headers, Rows: rows}}
}

// Validate ensures the slide's type is known and exactly the matching
// payload is populated.
func (s *Slide) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("unknown slide type %q", s.Type)
	}

	set := 0
	for _, p := range []bool{
		s.Title != nil,
		s.Cards != nil,
		s.Comparison != nil,
		s.Timeline != nil,
		s.Quote != nil,
		s.Table != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("slide must carry exactly one payload, has %d", set)
	}
	if s.payload() == nil {
		return fmt.Errorf("slide payload does not match type %q", s.Type)
	}
	return nil
}

// payload returns the populated payload for the slide's type, or nil when
// the union is inconsistent.
func (s *Slide) payload() interface{} {
	switch s.Type {
	case SlideTypeTitle:
		if s.Title != nil {
			return s.Title
		}
	case SlideTypeCardGrid:
		if s.Cards != nil {
			return s.Cards
		}
	case SlideTypeComparison:
		if s.Comparison != nil {
			return s.Comparison
		}
	case SlideTypeTimeline:
		if s.Timeline != nil {
			return s.Timeline
		}
	case SlideTypeQuote:
		if s.Quote != nil {
			return s.Quote
		}
	case SlideTypeTable:
		if s.Table != nil {
			return s.Table
		}
	}
	return nil
}

// TextFragments returns every user-visible text piece on the slide, in
// reading order. Scoring walks these; renderers downstream do their own
// layout.
func (s *Slide) TextFragments() []string {
	var out []string
	add := func(parts ...string) {
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				out = append(out, p)
			}
		}
	}

	switch s.Type {
	case SlideTypeTitle:
		if s.Title != nil {
			add(s.Title.Text, s.Title.Subtitle)
		}
	case SlideTypeCardGrid:
		if s.Cards != nil {
			add(s.Cards.Title)
			add(s.Cards.Items...)
		}
	case SlideTypeComparison:
		if s.Comparison != nil {
			add(s.Comparison.Title, s.Comparison.Left.Title, s.Comparison.Right.Title)
			add(s.Comparison.Left.Points...)
			add(s.Comparison.Right.Points...)
		}
	case SlideTypeTimeline:
		if s.Timeline != nil {
			add(s.Timeline.Title)
			for _, st := range s.Timeline.Steps {
				add(st.Title, st.Description)
			}
		}
	case SlideTypeQuote:
		if s.Quote != nil {
			add(s.Quote.Text, s.Quote.Author)
		}
	case SlideTypeTable:
		if s.Table != nil {
			add(s.Table.Title)
			add(s.Table.Headers...)
			for _, row := range s.Table.Rows {
				add(row...)
			}
		}
	}
	return out
}

// IsEmpty reports whether the slide carries no extractable text at all.
func (s *Slide) IsEmpty() bool {
	return len(s.TextFragments()) == 0
}

// MarshalJSON flattens the active payload's fields beside the type tag,
// e.g. {"type":"quote","quote":"...","author":"..."}.
func (s Slide) MarshalJSON() ([]byte, error) {
	switch s.Type {
	case SlideTypeTitle:
		return json.Marshal(struct {
			Type SlideType `json:"type"`
			*TitleSlide
		}{s.Type, s.Title})
	case SlideTypeCardGrid:
		return json.Marshal(struct {
			Type SlideType `json:"type"`
			*CardGridSlide
		}{s.Type, s.Cards})
	case SlideTypeComparison:
		return json.Marshal(struct {
			Type SlideType `json:"type"`
			*ComparisonSlide
		}{s.Type, s.Comparison})
	case SlideTypeTimeline:
		return json.Marshal(struct {
			Type SlideType `json:"type"`
			*TimelineSlide
		}{s.Type, s.Timeline})
	case SlideTypeQuote:
		return json.Marshal(struct {
			Type SlideType `json:"type"`
			*QuoteSlide
		}{s.Type, s.Quote})
	case SlideTypeTable:
		return json.Marshal(struct {
			Type SlideType `json:"type"`
			*TableSlide
		}{s.Type, s.Table})
	default:
		return nil, fmt.Errorf("cannot marshal slide of unknown type %q", s.Type)
	}
}

// UnmarshalJSON dispatches on the type tag. Unknown types decode as a
// card-grid shell so stored or relayed decks never fail to load.
func (s *Slide) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	t, _ := ParseSlideType(head.Type)
	switch t {
	case SlideTypeTitle:
		var p TitleSlide
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Slide{Type: t, Title: &p}
	case SlideTypeComparison:
		var p ComparisonSlide
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Slide{Type: t, Comparison: &p}
	case SlideTypeTimeline:
		var p TimelineSlide
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Slide{Type: t, Timeline: &p}
	case SlideTypeQuote:
		var p QuoteSlide
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Slide{Type: t, Quote: &p}
	case SlideTypeTable:
		var p TableSlide
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Slide{Type: t, Table: &p}
	default:
		var p CardGridSlide
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Slide{Type: SlideTypeCardGrid, Cards: &p}
	}
	return nil
}

// Deck is the ordered sequence of typed slides produced by one generation
// request.
type Deck struct {
	// Slides are the deck's slides in presentation order.
	Slides []Slide `json:"slides"`
}

// Validate ensures the deck satisfies the structural contract: slide
// count within bounds, the first slide a title, every slide well-formed.
func (d *Deck) Validate() error {
	if len(d.Slides) == 0 {
		return errors.New("deck must have at least one slide")
	}
	if len(d.Slides) < MinSlides || len(d.Slides) > MaxSlides {
		return fmt.Errorf("deck has %d slides, want %d-%d", len(d.Slides), MinSlides, MaxSlides)
	}
	if d.Slides[0].Type != SlideTypeTitle {
		return fmt.Errorf("first slide must be a title slide, got %q", d.Slides[0].Type)
	}
	for i := range d.Slides {
		if err := d.Slides[i].Validate(); err != nil {
			return fmt.Errorf("slide %d: %w", i+1, err)
		}
	}
	return nil
}

// SlideCount returns the number of slides in the deck.
func (d *Deck) SlideCount() int {
	return len(d.Slides)
}

// DistinctTypes returns the number of distinct slide types present.
func (d *Deck) DistinctTypes() int {
	seen := make(map[SlideType]struct{}, len(d.Slides))
	for i := range d.Slides {
		seen[d.Slides[i].Type] = struct{}{}
	}
	return len(seen)
}

// BodyCount returns the number of content-bearing body slides.
func (d *Deck) BodyCount() int {
	n := 0
	for i := range d.Slides {
		if d.Slides[i].Type.IsBody() {
			n++
		}
	}
	return n
}
