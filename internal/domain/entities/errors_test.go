package entities

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeInputRequired, http.StatusBadRequest},
		{CodeFilePathNotAllowed, http.StatusForbidden},
		{CodeFileNotFound, http.StatusNotFound},
		{CodeFileTooLarge, http.StatusRequestEntityTooLarge},
		{CodeURLTimeout, http.StatusGatewayTimeout},
		{CodeURLConnectionFailed, http.StatusBadGateway},
		{CodeAntiBotDetected, http.StatusLocked},
		{CodeUnsupportedContentType, http.StatusUnsupportedMediaType},
		{CodeSourceTextTooShort, http.StatusUnprocessableEntity},
		{CodePDFParseFailed, http.StatusUnprocessableEntity},
		{CodeMarkdownInvalidBase64, http.StatusBadRequest},
		{CodeGenerationBusy, http.StatusTooManyRequests},
		{CodeGenerationTimeout, http.StatusGatewayTimeout},
		{CodeAIUnavailable, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, StatusFor(ErrorCode("NO_SUCH_CODE")))
	})
}

func TestPipelineErrorMessage(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewPipelineError(CodeFileNotFound, "file does not exist")
		assert.Equal(t, "FILE_NOT_FOUND: file does not exist", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		err := WrapPipelineError(CodeURLConnectionFailed, "could not reach host", errors.New("dial tcp: refused"))
		assert.Equal(t, "URL_CONNECTION_FAILED: could not reach host: dial tcp: refused", err.Error())
	})
}

func TestNewPipelineError(t *testing.T) {
	err := NewPipelineError(CodeGenerationBusy, "another generation is running")

	assert.Equal(t, CodeGenerationBusy, err.Code)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
	assert.Equal(t, "another generation is running", err.Message)
	assert.Nil(t, err.Err)
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapPipelineError(CodeInternal, "wrapped", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAsPipelineError(t *testing.T) {
	t.Run("passes a pipeline error through", func(t *testing.T) {
		original := NewPipelineError(CodePDFEmpty, "no pages")
		assert.Same(t, original, AsPipelineError(original))
	})

	t.Run("finds one behind fmt wrapping", func(t *testing.T) {
		original := NewPipelineError(CodeURLForbidden, "blocked")
		wrapped := fmt.Errorf("resolve: %w", original)
		assert.Same(t, original, AsPipelineError(wrapped))
	})

	t.Run("wraps foreign errors as internal", func(t *testing.T) {
		cause := errors.New("boom")
		pe := AsPipelineError(cause)

		assert.Equal(t, CodeInternal, pe.Code)
		assert.Equal(t, http.StatusInternalServerError, pe.Status)
		assert.Equal(t, "internal error", pe.Message)
		assert.ErrorIs(t, pe, cause)
	})
}

func TestIsCode(t *testing.T) {
	err := NewPipelineError(CodeSourceTooLarge, "too big")

	assert.True(t, IsCode(err, CodeSourceTooLarge))
	assert.True(t, IsCode(fmt.Errorf("outer: %w", err), CodeSourceTooLarge))
	assert.False(t, IsCode(err, CodeFileTooLarge))
	assert.False(t, IsCode(errors.New("plain"), CodeSourceTooLarge))
	assert.False(t, IsCode(nil, CodeSourceTooLarge))
}
