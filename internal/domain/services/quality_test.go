package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/test/builders"
)

func TestEvaluateDeck_PerfectDeck(t *testing.T) {
	report := EvaluateDeck(*builders.ValidDeck())

	assert.Equal(t, 100, report.Structure)
	assert.Equal(t, 100, report.Readability)
	assert.Equal(t, 100, report.Diversity)
	assert.Equal(t, 100, report.Overall)
	assert.Empty(t, report.Issues)
}

func TestEvaluateDeck_WeightedOverall(t *testing.T) {
	// Two slide types only, everything else clean: 0.45*100 + 0.35*100 +
	// 0.20*65 rounds to 93.
	report := EvaluateDeck(*builders.MinimalDeck())

	assert.Equal(t, 100, report.Structure)
	assert.Equal(t, 100, report.Readability)
	assert.Equal(t, 65, report.Diversity)
	assert.Equal(t, 93, report.Overall)
	assert.Equal(t, []string{"deck uses only two slide types"}, report.Issues)
}

func TestEvaluateDeck_StructurePenalties(t *testing.T) {
	t.Run("short deck missing body slides", func(t *testing.T) {
		deck := builders.NewDeckBuilder().
			WithTitle("T", "").
			WithCardSlides(1).
			Build()
		report := EvaluateDeck(*deck)

		assert.Equal(t, 50, report.Structure)
		assert.Equal(t, 71, report.Overall)
		assert.Contains(t, report.Issues, "deck has 2 slides, fewer than the minimum of 5")
		assert.Contains(t, report.Issues, "deck has fewer than two content slides")
	})

	t.Run("missing leading title", func(t *testing.T) {
		deck := builders.NewDeckBuilder().WithCardSlides(5).Build()
		report := EvaluateDeck(*deck)

		assert.Equal(t, 55, report.Structure)
		assert.Equal(t, 40, report.Diversity)
		assert.Contains(t, report.Issues, "deck does not open with a title slide")
		assert.Contains(t, report.Issues, "deck uses a single slide type")
	})

	t.Run("weak closing slide", func(t *testing.T) {
		deck := builders.NewDeckBuilder().
			WithTitle("T", "").
			WithCardSlides(3).
			WithSlide(entities.NewTableSlide("Numbers", []string{"A", "B"}, [][]string{{"1", "2"}})).
			Build()
		report := EvaluateDeck(*deck)

		assert.Equal(t, 92, report.Structure)
		assert.Contains(t, report.Issues, "deck closes on a weak slide type")
	})

	t.Run("empty deck bottoms out", func(t *testing.T) {
		report := EvaluateDeck(entities.Deck{})

		assert.Equal(t, 5, report.Structure)
		assert.Equal(t, 100, report.Readability)
		assert.Equal(t, 40, report.Diversity)
		assert.Equal(t, 45, report.Overall)
	})
}

func TestEvaluateDeck_ReadabilityPenalties(t *testing.T) {
	long := strings.Repeat("a", maxFragmentLen+10)
	dense := make([]string, denseItemCount+1)
	for i := range dense {
		dense[i] = "point"
	}

	deck := builders.NewDeckBuilder().
		WithTitle("T", "").
		WithSlides(
			entities.NewCardGridSlide("Dense", dense),
			entities.NewCardGridSlide("Long", []string{long}),
			entities.NewCardGridSlide("", nil),
			entities.NewQuoteSlide("A closing word on the project.", ""),
		).
		Build()
	report := EvaluateDeck(*deck)

	assert.Equal(t, 100, report.Structure)
	assert.Equal(t, 74, report.Readability)
	assert.Equal(t, 85, report.Diversity)
	assert.Equal(t, 88, report.Overall)
	assert.Contains(t, report.Issues, "slide 2 is overloaded")
	assert.Contains(t, report.Issues, "slide 3 has text longer than 140 characters")
	assert.Contains(t, report.Issues, "slide 4 has no text")
}

func TestEvaluateDeck_DenseTable(t *testing.T) {
	rows := make([][]string, denseRowCount+1)
	for i := range rows {
		rows[i] = []string{"a", "b"}
	}

	deck := builders.NewDeckBuilder().
		WithTitle("T", "").
		WithSlides(
			entities.NewTableSlide("Big", []string{"A", "B"}, rows),
			entities.NewQuoteSlide("Done.", ""),
		).
		Build()
	report := EvaluateDeck(*deck)

	assert.Equal(t, 92, report.Readability)
	assert.Contains(t, report.Issues, "slide 2 is overloaded")
}

func TestEvaluateDeck_IssueHandling(t *testing.T) {
	t.Run("duplicate issues collapse", func(t *testing.T) {
		long := strings.Repeat("b", maxFragmentLen+1)
		deck := builders.NewDeckBuilder().
			WithTitle("T", "").
			WithSlide(entities.NewCardGridSlide("Long", []string{long, long})).
			WithCardSlides(3).
			Build()
		report := EvaluateDeck(*deck)

		// Two oversized fragments on one slide score twice but report once.
		assert.Equal(t, 92, report.Readability)
		hits := 0
		for _, issue := range report.Issues {
			if issue == "slide 2 has text longer than 140 characters" {
				hits++
			}
		}
		assert.Equal(t, 1, hits)
	})

	t.Run("issue list is capped", func(t *testing.T) {
		empty := make([]entities.Slide, entities.MaxSlides)
		for i := range empty {
			empty[i] = entities.NewCardGridSlide("", nil)
		}
		report := EvaluateDeck(entities.Deck{Slides: empty})

		require.Len(t, report.Issues, MaxIssues)
		assert.Equal(t, 0, report.Readability)
	})
}
