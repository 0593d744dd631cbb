package builders

import (
	"strconv"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// DeckBuilder helps build Deck entities for testing
type DeckBuilder struct {
	deck *entities.Deck
}

// NewDeckBuilder creates a new deck builder with an empty slide list
func NewDeckBuilder() *DeckBuilder {
	return &DeckBuilder{deck: &entities.Deck{}}
}

// WithTitle prepends a title slide
func (b *DeckBuilder) WithTitle(text, subtitle string) *DeckBuilder {
	slides := []entities.Slide{entities.NewTitleSlide(text, subtitle)}
	b.deck.Slides = append(slides, b.deck.Slides...)
	return b
}

// WithSlide appends a single slide
func (b *DeckBuilder) WithSlide(slide entities.Slide) *DeckBuilder {
	b.deck.Slides = append(b.deck.Slides, slide)
	return b
}

// WithSlides appends a batch of slides
func (b *DeckBuilder) WithSlides(slides ...entities.Slide) *DeckBuilder {
	b.deck.Slides = append(b.deck.Slides, slides...)
	return b
}

// WithCardSlides appends the specified number of card-grid slides, each
// with distinct filler items
func (b *DeckBuilder) WithCardSlides(count int) *DeckBuilder {
	for i := 0; i < count; i++ {
		n := strconv.Itoa(i + 1)
		b.deck.Slides = append(b.deck.Slides, entities.NewCardGridSlide(
			"Topic "+n,
			[]string{
				"First supporting point for topic " + n,
				"Second supporting point for topic " + n,
				"Third supporting point for topic " + n,
			},
		))
	}
	return b
}

// Build creates the final Deck entity with a copied slide list
func (b *DeckBuilder) Build() *entities.Deck {
	return &entities.Deck{Slides: append([]entities.Slide{}, b.deck.Slides...)}
}

// Common decks for testing

// ValidDeck creates a deck that passes structural validation: a title
// slide followed by enough varied body slides to clear the minimum count.
func ValidDeck() *entities.Deck {
	return NewDeckBuilder().
		WithTitle("Orchard Platform", "A field guide").
		WithSlides(
			entities.NewCardGridSlide("Highlights", []string{
				"Plans releases across every team in one place",
				"Tracks dependencies between services automatically",
				"Surfaces risk before the release window opens",
			}),
			entities.NewComparisonSlide("Before and after",
				entities.ComparisonSide{Title: "Before", Points: []string{"Manual spreadsheets", "Release drift"}},
				entities.ComparisonSide{Title: "After", Points: []string{"Single dashboard", "Predictable cadence"}},
			),
			entities.NewTimelineSlide("Rollout", []entities.TimelineStep{
				{Title: "Pilot", Description: "Two teams adopt the planner"},
				{Title: "Expand", Description: "Platform group onboards"},
				{Title: "Default", Description: "All releases tracked"},
			}),
			entities.NewTableSlide("Numbers", []string{"Metric", "Value"}, [][]string{
				{"Teams", "14"},
				{"Releases", "120"},
			}),
			entities.NewQuoteSlide("It removed a whole class of release accidents.", "Platform lead"),
		).
		Build()
}

// MinimalDeck creates the smallest deck that passes validation.
func MinimalDeck() *entities.Deck {
	return NewDeckBuilder().
		WithTitle("Minimal", "").
		WithCardSlides(entities.MinSlides - 1).
		Build()
}

// MonotonousDeck creates a deck whose body slides all use the same layout,
// useful for exercising diversity scoring.
func MonotonousDeck() *entities.Deck {
	return NewDeckBuilder().
		WithTitle("Monotone", "").
		WithCardSlides(6).
		Build()
}
