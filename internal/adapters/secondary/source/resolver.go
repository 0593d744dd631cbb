package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/deckhandhq/deckhand/internal/adapters/secondary/extract"
	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/services"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// MinSourceChars is the least extracted text a deck can be built from.
const MinSourceChars = 80

// hardLimitMultiplier: directly-ingested text larger than this many
// budgets is rejected instead of clamped, because a clamp that throws
// away over 90% of the input would silently build a deck from a
// fraction of the document.
const hardLimitMultiplier = 10

var (
	ipv4HostPattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}(?::\d+)?$`)
	hostPortPattern = regexp.MustCompile(`^[^/\s]+:\d+$`)
	base64Pattern   = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	nameSeparators  = regexp.MustCompile(`[-_.\s]+`)
)

// Resolver turns a generation request into sanitized source text. It
// implements ports.SourceResolver.
type Resolver struct {
	fetcher *Fetcher
	pdf     *extract.PDFExtractor
	html    *extract.HTMLExtractor
	files   entities.FilesConfig
	logger  *logger.Logger
}

// NewResolver creates a resolver. log may be nil.
func NewResolver(fetcher *Fetcher, pdf *extract.PDFExtractor, html *extract.HTMLExtractor, files entities.FilesConfig, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{fetcher: fetcher, pdf: pdf, html: html, files: files, logger: log}
}

// Resolve dispatches on which input the request carries: PDF bytes win,
// then inline markdown, then the URL-or-path string.
func (r *Resolver) Resolve(ctx context.Context, req entities.GenerationRequest) (entities.ResolvedSource, error) {
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}

	switch {
	case len(req.PDF) > 0:
		return r.resolvePDF(req, locale)
	case strings.TrimSpace(req.Markdown) != "":
		return r.resolveMarkdown(req, locale)
	case strings.TrimSpace(req.URL) != "":
		raw := strings.TrimSpace(req.URL)
		if IsFilePath(raw) {
			return r.resolveFile(raw, locale)
		}
		return r.resolveWeb(ctx, raw, locale)
	default:
		return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeInputRequired,
			"provide a url, a file path, markdown text, or a pdf")
	}
}

func (r *Resolver) resolvePDF(req entities.GenerationRequest, locale string) (entities.ResolvedSource, error) {
	text, err := r.pdf.Extract(req.PDF)
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	text = services.CleanText(text)
	if err := checkMinLength(text); err != nil {
		return entities.ResolvedSource{}, err
	}

	label := req.FileName
	if label == "" {
		label = "document.pdf"
	}
	return entities.ResolvedSource{
		Text:     text,
		Label:    label,
		NameHint: nameFromBase(label, locale),
		Type:     entities.SourceTypePDF,
	}, nil
}

func (r *Resolver) resolveMarkdown(req entities.GenerationRequest, locale string) (entities.ResolvedSource, error) {
	text, err := decodeMarkdownPayload(req.Markdown)
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	if utf8.RuneCountInString(text) > hardLimitMultiplier*services.MaxSourceChars {
		return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeMarkdownTooLarge,
			fmt.Sprintf("markdown exceeds %d characters", hardLimitMultiplier*services.MaxSourceChars))
	}

	text = services.NormalizeMarkdown(text)
	if err := checkMinLength(text); err != nil {
		return entities.ResolvedSource{}, err
	}

	label := req.FileName
	if label == "" {
		label = "markdown"
	}

	hint := ""
	if req.FileName != "" {
		hint = nameFromBase(req.FileName, locale)
	}
	if hint == "" {
		hint = frontmatterTitle(text)
	}
	if hint == "" {
		hint = firstHeading(text)
	}

	return entities.ResolvedSource{
		Text:     text,
		Label:    label,
		NameHint: hint,
		Type:     entities.SourceTypeMarkdown,
	}, nil
}

func (r *Resolver) resolveFile(raw, locale string) (entities.ResolvedSource, error) {
	abs, err := normalizeFilePath(raw)
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	canonical, err := checkAllowedPath(abs, r.files.GetAllowedRoots())
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	data, err := readSourceFile(canonical, r.files.GetMaxPDFBytes())
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	base := filepath.Base(canonical)
	hint := nameFromBase(base, locale)
	ext := strings.ToLower(filepath.Ext(canonical))

	switch {
	case ext == ".pdf":
		text, err := r.pdf.Extract(data)
		if err != nil {
			return entities.ResolvedSource{}, err
		}
		return r.finishSource(services.CleanText(text), base, hint, entities.SourceTypePDF)

	case markdownExts[ext]:
		text := string(data)
		if utf8.RuneCountInString(text) > hardLimitMultiplier*services.MaxSourceChars {
			return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeSourceTooLarge,
				fmt.Sprintf("%s exceeds %d characters", base, hardLimitMultiplier*services.MaxSourceChars))
		}
		return r.finishSource(services.NormalizeMarkdown(text), base, hint, entities.SourceTypeMarkdown)

	case extract.LooksLikeHTML(string(data)):
		page := r.html.Extract(string(data))
		if page.Title != "" {
			hint = page.Title
		}
		return r.finishSource(services.CleanText(page.Text()), base, hint, entities.SourceTypeURL)

	default:
		text := string(data)
		if !isProbablyText(data) {
			return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeUnsupportedContentType,
				fmt.Sprintf("%s does not look like a text document", base))
		}
		if utf8.RuneCountInString(text) > hardLimitMultiplier*services.MaxSourceChars {
			return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeSourceTooLarge,
				fmt.Sprintf("%s exceeds %d characters", base, hardLimitMultiplier*services.MaxSourceChars))
		}
		return r.finishSource(services.CleanText(text), base, hint, entities.SourceTypeMarkdown)
	}
}

func (r *Resolver) resolveWeb(ctx context.Context, raw, locale string) (entities.ResolvedSource, error) {
	withScheme := ensureScheme(raw)

	u, err := GuardURL(ctx, withScheme)
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	body, contentType, finalURL, err := r.fetcher.Fetch(ctx, u)
	if err != nil {
		return entities.ResolvedSource{}, err
	}

	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if mt, _, parseErr := mime.ParseMediaType(contentType); parseErr == nil {
		mediaType = strings.ToLower(mt)
	}
	r.logger.Debug("fetched source", "url", u.String(), "bytes", len(body), "content_type", mediaType)

	label := withScheme
	hint := nameFromURL(finalURL, locale)

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return r.webPage(body, label, hint)

	case strings.Contains(mediaType, "pdf"):
		text, err := r.pdf.Extract(body)
		if err != nil {
			return entities.ResolvedSource{}, err
		}
		return r.finishSource(services.CleanText(text), label, hint, entities.SourceTypePDF)

	case mediaType == "text/markdown" || mediaType == "text/x-markdown":
		return r.finishSource(services.NormalizeMarkdown(string(body)), label, hint, entities.SourceTypeMarkdown)

	case strings.HasPrefix(mediaType, "text/"):
		return r.finishSource(services.CleanText(string(body)), label, hint, entities.SourceTypeURL)

	case mediaType == "" || mediaType == "application/octet-stream":
		// No usable declaration; sniff the bytes.
		switch {
		case bytes.HasPrefix(body, []byte("%PDF-")):
			text, err := r.pdf.Extract(body)
			if err != nil {
				return entities.ResolvedSource{}, err
			}
			return r.finishSource(services.CleanText(text), label, hint, entities.SourceTypePDF)
		case extract.LooksLikeHTML(string(body)):
			return r.webPage(body, label, hint)
		case isProbablyText(body):
			return r.finishSource(services.CleanText(string(body)), label, hint, entities.SourceTypeURL)
		default:
			return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeUnsupportedContentType,
				"response is not html, pdf, or text")
		}

	default:
		return entities.ResolvedSource{}, entities.NewPipelineError(entities.CodeUnsupportedContentType,
			fmt.Sprintf("content type %q is not supported", mediaType))
	}
}

// webPage extracts readable text from an HTML body and prefers the page
// title as the name hint.
func (r *Resolver) webPage(body []byte, label, hint string) (entities.ResolvedSource, error) {
	page := r.html.Extract(string(body))
	if page.Title != "" {
		hint = page.Title
	}
	return r.finishSource(services.CleanText(page.Text()), label, hint, entities.SourceTypeURL)
}

// finishSource applies the shared trailing checks: enough text to work
// with, clamped to budget.
func (r *Resolver) finishSource(text, label, hint string, typ entities.SourceType) (entities.ResolvedSource, error) {
	if err := checkMinLength(text); err != nil {
		return entities.ResolvedSource{}, err
	}
	return entities.ResolvedSource{
		Text:     services.ClampRunes(text, services.MaxSourceChars),
		Label:    label,
		NameHint: hint,
		Type:     typ,
	}, nil
}

func checkMinLength(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinSourceChars {
		return entities.NewPipelineError(entities.CodeSourceTextTooShort,
			fmt.Sprintf("source text is under %d characters, not enough to build a deck", MinSourceChars))
	}
	return nil
}

// ensureScheme prefixes scheme-less URLs: plain http when the string
// names an explicit port or a literal IPv4 address (dev servers),
// https otherwise.
func ensureScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	authority := raw
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		authority = raw[:i]
	}
	if ipv4HostPattern.MatchString(authority) || hostPortPattern.MatchString(authority) {
		return "http://" + raw
	}
	return "https://" + raw
}

// decodeMarkdownPayload accepts raw markdown, a data: URL, or bare
// base64. Declared base64 that fails to decode is an error; the bare
// heuristic silently keeps the original text instead.
func decodeMarkdownPayload(raw string) (string, error) {
	if strings.HasPrefix(raw, "data:") {
		comma := strings.Index(raw, ",")
		if comma < 0 || !strings.Contains(raw[:comma], "base64") {
			return "", entities.NewPipelineError(entities.CodeMarkdownInvalidBase64,
				"data url must declare base64 encoding")
		}
		decoded, err := base64.StdEncoding.DecodeString(raw[comma+1:])
		if err != nil || !utf8.Valid(decoded) {
			return "", entities.NewPipelineError(entities.CodeMarkdownInvalidBase64,
				"data url payload is not valid base64 text")
		}
		return string(decoded), nil
	}

	compact := strings.TrimSpace(raw)
	if len(compact) < 8 || len(compact)%4 != 0 || !base64Pattern.MatchString(compact) {
		return raw, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil || !utf8.Valid(decoded) {
		return raw, nil
	}
	return string(decoded), nil
}

// isProbablyText reports whether bytes look like readable text: no NUL
// bytes and a high printable ratio in the sample.
func isProbablyText(data []byte) bool {
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	if len(sample) == 0 {
		return false
	}

	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

// nameFromBase derives a readable project name from a file or path
// segment: extension stripped, separator runs become spaces, words
// title-cased for the locale.
func nameFromBase(base, locale string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	words := nameSeparators.Split(stem, -1)

	kept := words[:0]
	for _, w := range words {
		if w != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return cases.Title(language.Make(locale)).String(strings.Join(kept, " "))
}

// nameFromURL prefers the last path segment and falls back to the host.
func nameFromURL(u *url.URL, locale string) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "" {
			continue
		}
		if hint := nameFromBase(segments[i], locale); hint != "" {
			return hint
		}
	}
	return nameFromBase(strings.TrimPrefix(u.Hostname(), "www."), locale)
}

// frontmatterTitle scans a leading YAML block for a title without
// decoding the whole document.
func frontmatterTitle(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 || strings.TrimSpace(lines[0]) != "---" {
		return ""
	}
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			return ""
		}
		if strings.HasPrefix(trimmed, "title:") {
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, "title:"))
			return strings.Trim(title, `"'`)
		}
	}
	return ""
}

// firstHeading returns the first ATX heading text in the document.
func firstHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return ""
}
