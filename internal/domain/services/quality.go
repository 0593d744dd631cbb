package services

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// Scoring parameters. The axis weights sum to 1; MaxIssues bounds the
// report's issue list.
const (
	structureWeight   = 0.45
	readabilityWeight = 0.35
	diversityWeight   = 0.20

	// MaxIssues caps the deduplicated issue list on a report.
	MaxIssues = 8

	// maxFragmentLen is the longest text fragment that reads comfortably
	// on a slide.
	maxFragmentLen = 140

	// denseItemCount and denseRowCount mark a slide as overloaded.
	denseItemCount = 6
	denseRowCount  = 7
)

// EvaluateDeck scores a normalized deck on structure, readability, and
// diversity, each 0-100, and combines them into the weighted overall
// score. Every triggered penalty is recorded as an issue string.
func EvaluateDeck(deck entities.Deck) entities.QualityReport {
	var issues []string

	structure := scoreStructure(deck, &issues)
	readability := scoreReadability(deck, &issues)
	diversity := scoreDiversity(deck, &issues)

	overall := int(math.Round(
		structureWeight*float64(structure) +
			readabilityWeight*float64(readability) +
			diversityWeight*float64(diversity)))

	return entities.QualityReport{
		Structure:   structure,
		Readability: readability,
		Diversity:   diversity,
		Overall:     clampScore(overall),
		Issues:      capIssues(DedupeStrings(issues)),
	}
}

func scoreStructure(deck entities.Deck, issues *[]string) int {
	score := 100
	count := deck.SlideCount()

	if count < entities.MinSlides {
		score -= 30
		*issues = append(*issues, fmt.Sprintf("deck has %d slides, fewer than the minimum of %d", count, entities.MinSlides))
	}
	if count > entities.MaxSlides {
		score -= 12
		*issues = append(*issues, fmt.Sprintf("deck has %d slides, more than the maximum of %d", count, entities.MaxSlides))
	}

	if count == 0 || deck.Slides[0].Type != entities.SlideTypeTitle {
		score -= 45
		*issues = append(*issues, "deck does not open with a title slide")
	}

	if deck.BodyCount() < 2 {
		score -= 20
		*issues = append(*issues, "deck has fewer than two content slides")
	}

	if count > 0 {
		switch deck.Slides[count-1].Type {
		case entities.SlideTypeTitle, entities.SlideTypeQuote, entities.SlideTypeCardGrid:
		default:
			score -= 8
			*issues = append(*issues, "deck closes on a weak slide type")
		}
	}

	return clampScore(score)
}

func scoreReadability(deck entities.Deck, issues *[]string) int {
	score := 100

	for i := range deck.Slides {
		slide := &deck.Slides[i]
		fragments := slide.TextFragments()

		for _, f := range fragments {
			if utf8.RuneCountInString(f) > maxFragmentLen {
				score -= 4
				*issues = append(*issues, fmt.Sprintf("slide %d has text longer than %d characters", i+1, maxFragmentLen))
			}
		}

		if isDense(slide) {
			score -= 8
			*issues = append(*issues, fmt.Sprintf("slide %d is overloaded", i+1))
		}

		if len(fragments) == 0 {
			score -= 14
			*issues = append(*issues, fmt.Sprintf("slide %d has no text", i+1))
		}
	}

	return clampScore(score)
}

func isDense(slide *entities.Slide) bool {
	switch slide.Type {
	case entities.SlideTypeCardGrid:
		return slide.Cards != nil && len(slide.Cards.Items) > denseItemCount
	case entities.SlideTypeTimeline:
		return slide.Timeline != nil && len(slide.Timeline.Steps) > denseItemCount
	case entities.SlideTypeTable:
		return slide.Table != nil && len(slide.Table.Rows) > denseRowCount
	default:
		return false
	}
}

func scoreDiversity(deck entities.Deck, issues *[]string) int {
	distinct := deck.DistinctTypes()
	switch {
	case distinct >= 4:
		return 100
	case distinct == 3:
		return 85
	case distinct == 2:
		*issues = append(*issues, "deck uses only two slide types")
		return 65
	default:
		*issues = append(*issues, "deck uses a single slide type")
		return 40
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func capIssues(issues []string) []string {
	if len(issues) > MaxIssues {
		return issues[:MaxIssues]
	}
	return issues
}
