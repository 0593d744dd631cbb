package services

import (
	"fmt"
	"strings"
)

// Keyword tables for the heuristic classifier. English and Korean are
// covered because those are the locales the product ships with; keyword
// matching is always case-insensitive.
var (
	versusKeywords = []string{"vs", "vs.", "versus", "대", "비교"}

	sequenceKeywords = []string{
		"step", "phase", "stage", "roadmap", "timeline",
		"단계", "로드맵", "순서", "절차",
	}

	presenterMarkers = []string{
		"presented by", "author:", "by ", "date:",
		"발표", "작성자", "작성일",
	}
)

func containsVersusKeyword(text string) bool {
	return containsAnyWord(text, versusKeywords)
}

func containsSequenceKeyword(text string) bool {
	return containsAnyWord(text, sequenceKeywords)
}

func containsPresenterMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range presenterMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// containsAnyWord matches keywords on word boundaries so "vs" does not
// fire inside "canvas".
func containsAnyWord(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		switch r {
		case ' ', '\t', ',', ';', '(', ')', '[', ']', '/', '|':
			return true
		}
		return false
	})
	for _, f := range fields {
		for _, kw := range keywords {
			if f == kw {
				return true
			}
		}
	}
	// CJK keywords rarely sit on ASCII word boundaries; substring-match
	// the non-ASCII ones.
	for _, kw := range keywords {
		if !isASCII(kw) && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// stepTitle returns the numbered step label for a timeline entry.
func stepTitle(locale string, n int) string {
	if isKorean(locale) {
		return fmt.Sprintf("단계 %d", n)
	}
	return fmt.Sprintf("Step %d", n)
}

// overviewTitle returns the summary slide heading.
func overviewTitle(locale string) string {
	if isKorean(locale) {
		return "개요"
	}
	return "Overview"
}

// keyPointsTitle returns the default card-grid heading.
func keyPointsTitle(locale string) string {
	if isKorean(locale) {
		return "핵심 포인트"
	}
	return "Key Points"
}

// optionTitles returns the default comparison column names.
func optionTitles(locale string) (string, string) {
	if isKorean(locale) {
		return "옵션 A", "옵션 B"
	}
	return "Option A", "Option B"
}

// cannedQuote returns the placeholder quotation used when a quote slide
// has no text to show.
func cannedQuote(locale string) string {
	if isKorean(locale) {
		return "모든 훌륭한 발표는 하나의 아이디어에서 시작됩니다."
	}
	return "Every great presentation starts with a single idea."
}

// untitledProject returns the project name of last resort.
func untitledProject(locale string) string {
	if isKorean(locale) {
		return "제목 없는 프로젝트"
	}
	return "Untitled Project"
}

func isKorean(locale string) bool {
	return strings.HasPrefix(strings.ToLower(locale), "ko")
}
