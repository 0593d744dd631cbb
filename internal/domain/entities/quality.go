package entities

// QualityReport scores a normalized deck on three axes, each 0-100.
// Overall is the weighted combination computed by the evaluator; Issues
// lists every triggered penalty in human-readable form.
type QualityReport struct {
	// Structure scores slide count, title placement, and framing.
	Structure int `json:"structure"`

	// Readability scores text length and slide density.
	Readability int `json:"readability"`

	// Diversity scores the variety of slide types used.
	Diversity int `json:"diversity"`

	// Overall is the weighted, rounded combination of the three axes.
	Overall int `json:"overall"`

	// Issues are deduplicated penalty descriptions, capped at eight.
	Issues []string `json:"issues"`
}
