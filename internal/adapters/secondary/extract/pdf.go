package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// pdfMagic is the byte prefix every real PDF carries.
var pdfMagic = []byte("%PDF-")

// minPDFTextRunes is the least extracted text worth keeping; below it
// the document is effectively imageless scans or vector art.
const minPDFTextRunes = 40

// PDFExtractor pulls plain text out of PDF bytes. All failures are
// typed so callers can report them without inspecting messages.
type PDFExtractor struct {
	maxBytes int64
}

// NewPDFExtractor creates an extractor that rejects documents larger
// than maxBytes. Zero or negative means 8MB.
func NewPDFExtractor(maxBytes int64) *PDFExtractor {
	if maxBytes <= 0 {
		maxBytes = 8 * 1024 * 1024
	}
	return &PDFExtractor{maxBytes: maxBytes}
}

// Extract returns the document's plain text. The underlying parser
// panics on some malformed cross-reference tables, so the whole parse
// runs under a recover that converts panics into parse errors.
func (e *PDFExtractor) Extract(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", entities.NewPipelineError(entities.CodePDFEmpty, "pdf document is empty")
	}
	if int64(len(data)) > e.maxBytes {
		return "", entities.NewPipelineError(entities.CodePDFTooLarge,
			fmt.Sprintf("pdf is %d bytes, limit is %d", len(data), e.maxBytes))
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", entities.NewPipelineError(entities.CodePDFParseFailed,
			"document does not start with a %PDF header")
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = entities.NewPipelineError(entities.CodePDFParseFailed,
				fmt.Sprintf("pdf parser panicked: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", entities.WrapPipelineError(entities.CodePDFParseFailed, "opening pdf", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", entities.WrapPipelineError(entities.CodePDFParseFailed, "extracting pdf text", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", entities.WrapPipelineError(entities.CodePDFParseFailed, "reading pdf text", err)
	}

	out := strings.TrimSpace(string(raw))
	if utf8.RuneCountInString(out) < minPDFTextRunes {
		return "", entities.NewPipelineError(entities.CodePDFTextNotFound,
			"pdf contains no extractable text, it may be scanned images")
	}
	return out, nil
}
