package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSourceChars is the character budget applied to all resolved source
// text before it reaches the generation pipeline.
const MaxSourceChars = 40000

// CleanText normalizes arbitrary plain text: CRLF/CR become LF, control
// characters other than newline and tab are dropped, runs of spaces and
// tabs collapse to one space, blank-line runs collapse to a single blank
// line, and the result is trimmed and clamped to MaxSourceChars.
// Cleaning already-clean text is a no-op.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = normalizeLineEndings(s)
	s = stripControl(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(collapseSpaces(line), " ")
	}
	s = collapseBlankRuns(lines)

	return ClampRunes(strings.TrimSpace(s), MaxSourceChars)
}

// NormalizeMarkdown cleans markdown without destroying its structure:
// line endings and control characters are normalized like CleanText,
// tabs expand to four spaces, and blank-line runs collapse — but only
// outside fenced code blocks, and intra-line spacing is left alone so
// list markers, tables, and hard breaks survive. Same character clamp.
func NormalizeMarkdown(s string) string {
	if s == "" {
		return ""
	}

	s = normalizeLineEndings(s)
	s = stripControlKeepTabs(s)

	lines := strings.Split(s, "\n")
	var out []string
	blanks := 0
	inFence := false
	for _, line := range lines {
		if isFenceDelimiter(line) {
			inFence = !inFence
			out = append(out, line)
			blanks = 0
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		line = strings.ReplaceAll(line, "\t", "    ")
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, line)
	}

	return ClampRunes(strings.Trim(strings.Join(out, "\n"), "\n"), MaxSourceChars)
}

// ClampRunes cuts s at n runes on a rune boundary.
func ClampRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Excerpt returns at most n runes of s, appending an ellipsis when text
// was cut.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), " ") + "…"
}

// SplitSentences splits text on terminal punctuation (including
// full-width CJK terminators) and newlines, dropping fragments shorter
// than minLen runes.
func SplitSentences(text string, minLen int) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if utf8.RuneCountInString(s) >= minLen {
			sentences = append(sentences, s)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '\n':
			flush()
		case '。', '！', '？':
			current.WriteRune(r)
			flush()
		case '.', '!', '?':
			current.WriteRune(r)
			// Keep decimals and abbreviations like "3.5" intact.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				flush()
			}
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return sentences
}

// DedupeStrings removes duplicates (case-insensitive after trimming)
// while preserving first-seen order and dropping empties.
func DedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if r == utf8.RuneError || unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
}

func stripControlKeepTabs(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == utf8.RuneError || unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
}

func collapseSpaces(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	space := false
	for _, r := range line {
		if r == ' ' {
			space = true
			continue
		}
		if space {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseBlankRuns(lines []string) string {
	var out []string
	blanks := 0
	for _, line := range lines {
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isFenceDelimiter(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}
