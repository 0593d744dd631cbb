package entities

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable identifier attached to every
// pipeline failure. Codes are part of the API contract; renaming one is a
// breaking change.
type ErrorCode string

const (
	// Input errors.
	CodeInputRequired      ErrorCode = "INPUT_REQUIRED"
	CodeInvalidFileURL     ErrorCode = "INVALID_FILE_URL"
	CodeFilePathNotAllowed ErrorCode = "FILE_PATH_NOT_ALLOWED"
	CodeFileNotFound       ErrorCode = "FILE_NOT_FOUND"
	CodeNotAFile           ErrorCode = "NOT_A_FILE"
	CodeFileTooLarge       ErrorCode = "FILE_TOO_LARGE"

	// Network and SSRF errors.
	CodeURLTimeout             ErrorCode = "URL_TIMEOUT"
	CodeURLConnectionFailed    ErrorCode = "URL_CONNECTION_FAILED"
	CodeURLForbidden           ErrorCode = "URL_FORBIDDEN"
	CodeAntiBotDetected        ErrorCode = "ANTI_BOT_DETECTED"
	CodeUnsupportedContentType ErrorCode = "UNSUPPORTED_CONTENT_TYPE"
	CodeSourceTooLarge         ErrorCode = "SOURCE_TOO_LARGE"
	CodeSourceTextTooShort     ErrorCode = "SOURCE_TEXT_TOO_SHORT"

	// Format errors.
	CodePDFEmpty              ErrorCode = "PDF_EMPTY"
	CodePDFTooLarge           ErrorCode = "PDF_TOO_LARGE"
	CodePDFParseFailed        ErrorCode = "PDF_PARSE_FAILED"
	CodePDFTextNotFound       ErrorCode = "PDF_TEXT_NOT_FOUND"
	CodeMarkdownInvalidBase64 ErrorCode = "MARKDOWN_INVALID_BASE64"
	CodeMarkdownTooLarge      ErrorCode = "MARKDOWN_TOO_LARGE"

	// Concurrency errors.
	CodeGenerationBusy    ErrorCode = "GENERATION_BUSY"
	CodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"

	// CodeAIUnavailable marks internal AI-path failures. It is recovered
	// by the fallback generator and never surfaces to callers.
	CodeAIUnavailable ErrorCode = "AI_UNAVAILABLE"

	// CodeInternal covers everything else.
	CodeInternal ErrorCode = "INTERNAL"
)

// statusHints maps each code to the HTTP status the API layer should use.
var statusHints = map[ErrorCode]int{
	CodeInputRequired:          http.StatusBadRequest,
	CodeInvalidFileURL:         http.StatusBadRequest,
	CodeFilePathNotAllowed:     http.StatusForbidden,
	CodeFileNotFound:           http.StatusNotFound,
	CodeNotAFile:               http.StatusBadRequest,
	CodeFileTooLarge:           http.StatusRequestEntityTooLarge,
	CodeURLTimeout:             http.StatusGatewayTimeout,
	CodeURLConnectionFailed:    http.StatusBadGateway,
	CodeURLForbidden:           http.StatusForbidden,
	CodeAntiBotDetected:        http.StatusLocked,
	CodeUnsupportedContentType: http.StatusUnsupportedMediaType,
	CodeSourceTooLarge:         http.StatusRequestEntityTooLarge,
	CodeSourceTextTooShort:     http.StatusUnprocessableEntity,
	CodePDFEmpty:               http.StatusUnprocessableEntity,
	CodePDFTooLarge:            http.StatusRequestEntityTooLarge,
	CodePDFParseFailed:         http.StatusUnprocessableEntity,
	CodePDFTextNotFound:        http.StatusUnprocessableEntity,
	CodeMarkdownInvalidBase64:  http.StatusBadRequest,
	CodeMarkdownTooLarge:       http.StatusRequestEntityTooLarge,
	CodeGenerationBusy:         http.StatusTooManyRequests,
	CodeGenerationTimeout:      http.StatusGatewayTimeout,
	CodeAIUnavailable:          http.StatusInternalServerError,
	CodeInternal:               http.StatusInternalServerError,
}

// StatusFor returns the HTTP status hint for a code, 500 for unknown
// codes.
func StatusFor(code ErrorCode) int {
	if s, ok := statusHints[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// PipelineError is the single error type crossing module boundaries. The
// message is always safe to show to end users; the wrapped cause is for
// logs only.
type PipelineError struct {
	// Code is the stable machine-readable identifier.
	Code ErrorCode

	// Status is the HTTP status hint for the API layer.
	Status int

	// Message is a user-facing description of the failure.
	Message string

	// Err is the underlying cause, never serialized.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError builds an error with the code's default status hint.
func NewPipelineError(code ErrorCode, message string) *PipelineError {
	return &PipelineError{Code: code, Status: StatusFor(code), Message: message}
}

// WrapPipelineError builds an error carrying an underlying cause.
func WrapPipelineError(code ErrorCode, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Status: StatusFor(code), Message: message, Err: err}
}

// AsPipelineError extracts a PipelineError from an error chain. When the
// chain carries none, it returns a CodeInternal wrapper around err so the
// API layer always has a code and status to work with.
func AsPipelineError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return WrapPipelineError(CodeInternal, "internal error", err)
}

// IsCode reports whether the error chain carries a PipelineError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Code == code
}
