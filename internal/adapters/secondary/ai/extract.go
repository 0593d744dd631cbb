package ai

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// ErrNoSlides means no slide array could be recovered from the reply.
var ErrNoSlides = errors.New("reply contains no slide array")

// slideEnvelope is the shape the prompt asks for.
type slideEnvelope struct {
	Slides []entities.SlideDraft `json:"slides"`
}

// ExtractDrafts recovers slide drafts from a model reply in two stages:
// first the whole reply is decoded as-is (code fences stripped), then a
// string-aware bracket scan pulls out every balanced JSON value and
// tries each. Models wrap JSON in prose often enough that the second
// stage earns its keep.
func ExtractDrafts(reply string) ([]entities.SlideDraft, error) {
	trimmed := stripCodeFences(strings.TrimSpace(reply))

	if drafts, ok := decodeCandidate(trimmed); ok {
		return drafts, nil
	}

	for _, candidate := range scanJSONCandidates(trimmed) {
		if drafts, ok := decodeCandidate(candidate); ok {
			return drafts, nil
		}
	}
	return nil, ErrNoSlides
}

// decodeCandidate tries the envelope form then a bare slide array.
func decodeCandidate(raw string) ([]entities.SlideDraft, bool) {
	if raw == "" {
		return nil, false
	}

	var env slideEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil && len(env.Slides) > 0 {
		return env.Slides, true
	}

	var bare []entities.SlideDraft
	if err := json.Unmarshal([]byte(raw), &bare); err == nil && len(bare) > 0 {
		return bare, true
	}
	return nil, false
}

// stripCodeFences unwraps a reply fully enclosed in a markdown fence.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", …)
		body = body[nl+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// scanJSONCandidates returns every balanced top-level JSON object or
// array in s, in order of appearance. The scan tracks string literals
// and escapes so braces inside strings never unbalance the count.
func scanJSONCandidates(s string) []string {
	var candidates []string

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidates = append(candidates, s[start:i+1])
				start = -1
			}
		}
	}
	return candidates
}
