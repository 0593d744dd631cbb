package entities

import (
	"encoding/json"
	"time"
)

// GenerationStrategy records which path produced the returned deck.
type GenerationStrategy string

const (
	// StrategyAI means the AI candidate scored at or above the healing
	// threshold and was returned as-is.
	StrategyAI GenerationStrategy = "ai"

	// StrategyFallback means the deterministic generator produced the
	// initial candidate because the AI path was unavailable or failed.
	StrategyFallback GenerationStrategy = "fallback"

	// StrategyHealed means the AI candidate under-scored and the
	// deterministic candidate won the head-to-head comparison.
	StrategyHealed GenerationStrategy = "healed-fallback"
)

// GenerationRequest carries one generation attempt's input. Exactly one
// of URL, Markdown, or PDF is expected to be populated; the resolver
// rejects empty and ambiguous requests.
type GenerationRequest struct {
	// UserID is the identity used for single-flight locking.
	UserID string `json:"-"`

	// URL is a web address or a local file path/URL.
	URL string `json:"url,omitempty"`

	// Markdown is raw markdown text or a base64-encoded payload.
	Markdown string `json:"markdown,omitempty"`

	// PDF is the raw PDF document body.
	PDF []byte `json:"-"`

	// FileName labels markdown or PDF input, e.g. "notes.md".
	FileName string `json:"fileName,omitempty"`

	// ProjectName overrides the derived project name when set.
	ProjectName string `json:"projectName,omitempty"`

	// Locale selects the output language for generated deck text.
	// Defaults to "en".
	Locale string `json:"locale,omitempty"`
}

// GenerationMeta describes how a deck was produced.
type GenerationMeta struct {
	// ID is the unique identifier of this generation run.
	ID string `json:"id"`

	// SourceLabel and SourceType echo the resolved input.
	SourceLabel string     `json:"sourceLabel"`
	SourceType  SourceType `json:"sourceType"`

	// ProjectName is the final project name used for the title slide.
	ProjectName string `json:"projectName"`

	// Strategy records which candidate was returned.
	Strategy GenerationStrategy `json:"strategy"`

	// Duration is the wall-clock time the pipeline took.
	Duration time.Duration `json:"durationMs"`

	// CreatedAt is when the generation finished.
	CreatedAt time.Time `json:"createdAt"`
}

// GenerationResult is the orchestrator's successful output.
type GenerationResult struct {
	// Deck is the final, repaired, invariant-satisfying deck.
	Deck Deck `json:"deck"`

	// Quality is the report for the returned deck.
	Quality QualityReport `json:"quality"`

	// Meta describes the run.
	Meta GenerationMeta `json:"meta"`
}

// SlideDraft is the loosely-typed slide shape the AI path produces before
// normalization. Type is whatever string the model emitted; Content holds
// every other field untyped. The normalizer coerces drafts into Slide
// values and never fails, whatever shape Content takes.
type SlideDraft struct {
	Type    string
	Content map[string]interface{}
}

// UnmarshalJSON accepts both draft encodings seen in the wild:
// {"type":"quote","quote":"..."} with payload fields at the top level,
// and {"type":"quote","content":{"quote":"..."}} with a nested content
// object.
func (d *SlideDraft) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if t, ok := raw["type"].(string); ok {
		d.Type = t
	}
	delete(raw, "type")

	if nested, ok := raw["content"].(map[string]interface{}); ok && len(nested) > 0 {
		d.Content = nested
		return nil
	}
	d.Content = raw
	return nil
}

// MarshalJSON emits the flat encoding.
func (d SlideDraft) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Content)+1)
	for k, v := range d.Content {
		out[k] = v
	}
	out["type"] = d.Type
	return json.Marshal(out)
}
