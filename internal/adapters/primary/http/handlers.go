package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// maxRequestBytes caps generate request bodies. PDF payloads arrive
// base64-encoded, so the ceiling is the PDF limit plus encoding overhead
// and JSON envelope.
const maxRequestBytes = 12 * 1024 * 1024

// generateURLRequest is the POST /api/generate/url body
type generateURLRequest struct {
	URL         string `json:"url"`
	ProjectName string `json:"projectName"`
	Locale      string `json:"locale"`
}

// generateMarkdownRequest is the POST /api/generate/markdown body
type generateMarkdownRequest struct {
	Markdown    string `json:"markdown"`
	FileName    string `json:"fileName"`
	ProjectName string `json:"projectName"`
	Locale      string `json:"locale"`
}

// generatePDFRequest is the POST /api/generate/pdf body. PDF carries the
// document bytes base64-encoded, with or without a data: URI prefix.
type generatePDFRequest struct {
	PDF         string `json:"pdf"`
	FileName    string `json:"fileName"`
	ProjectName string `json:"projectName"`
	Locale      string `json:"locale"`
}

// generateResponse is the success envelope shared by all generate
// endpoints. Deck is the slide array itself, not the wrapper object.
type generateResponse struct {
	Deck    []entities.Slide        `json:"deck"`
	Quality entities.QualityReport  `json:"quality"`
	Meta    entities.GenerationMeta `json:"meta"`
}

// errorResponse is the error envelope: {"error": {"code", "message"}}
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    entities.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

// handleGenerateURL generates a deck from a web URL or local file path
func (s *Server) handleGenerateURL(w http.ResponseWriter, r *http.Request) {
	var req generateURLRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, entities.NewPipelineError(entities.CodeInputRequired, "url is required"))
		return
	}

	s.runGeneration(w, r, entities.GenerationRequest{
		URL:         req.URL,
		ProjectName: req.ProjectName,
		Locale:      req.Locale,
	})
}

// handleGenerateMarkdown generates a deck from raw or base64 markdown
func (s *Server) handleGenerateMarkdown(w http.ResponseWriter, r *http.Request) {
	var req generateMarkdownRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Markdown) == "" {
		s.writeError(w, entities.NewPipelineError(entities.CodeInputRequired, "markdown is required"))
		return
	}

	s.runGeneration(w, r, entities.GenerationRequest{
		Markdown:    req.Markdown,
		FileName:    req.FileName,
		ProjectName: req.ProjectName,
		Locale:      req.Locale,
	})
}

// handleGeneratePDF generates a deck from a base64-encoded PDF
func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req generatePDFRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	data, err := decodePDFPayload(req.PDF)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.runGeneration(w, r, entities.GenerationRequest{
		PDF:         data,
		FileName:    req.FileName,
		ProjectName: req.ProjectName,
		Locale:      req.Locale,
	})
}

// decodePDFPayload decodes the base64 pdf field, tolerating an optional
// data: URI prefix.
func decodePDFPayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, entities.NewPipelineError(entities.CodePDFEmpty, "pdf payload is empty")
	}

	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 || !strings.Contains(payload[:comma], "base64") {
			return nil, entities.NewPipelineError(entities.CodeMarkdownInvalidBase64,
				"pdf data URI must be base64-encoded")
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, entities.WrapPipelineError(entities.CodeMarkdownInvalidBase64,
			"pdf payload is not valid base64", err)
	}
	if len(data) == 0 {
		return nil, entities.NewPipelineError(entities.CodePDFEmpty, "pdf payload is empty")
	}
	return data, nil
}

// runGeneration executes the pipeline and writes the response envelope
func (s *Server) runGeneration(w http.ResponseWriter, r *http.Request, req entities.GenerationRequest) {
	generator := s.getGenerator()
	if generator == nil {
		s.writeError(w, entities.NewPipelineError(entities.CodeInternal, "generation service not configured"))
		return
	}

	req.UserID = userIdentity(r)

	result, err := generator.Generate(r.Context(), req)
	if err != nil {
		if s.monitor != nil {
			s.monitor.RecordFailure()
		}
		s.writeError(w, err)
		return
	}

	if s.monitor != nil {
		s.monitor.RecordGeneration(result.Meta.Strategy, result.Meta.Duration, result.Quality.Overall)
	}

	s.writeJSON(w, http.StatusOK, generateResponse{
		Deck:    result.Deck.Slides,
		Quality: result.Quality,
		Meta:    result.Meta,
	})
}

// handleHealth reports liveness plus pipeline counters
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"healthy": true,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	status := s.monitor.HealthReport()
	code := http.StatusOK
	if healthy, ok := status["healthy"].(bool); ok && !healthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, status)
}

// userIdentity returns the identity used for single-flight locking:
// the X-User-ID header when present, else the client IP.
func userIdentity(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return clientIP(r)
}

// decodeJSON reads and decodes a JSON request body. On failure it writes
// the error response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, entities.NewPipelineError(entities.CodeSourceTooLarge, "request body too large"))
			return false
		}
		s.writeError(w, entities.WrapPipelineError(entities.CodeInputRequired,
			"request body must be valid JSON", err))
		return false
	}
	return true
}

// writeError maps any error to the taxonomy envelope and status hint
func (s *Server) writeError(w http.ResponseWriter, err error) {
	pe := entities.AsPipelineError(err)

	// Full cause goes to the log; only code and safe message go out.
	s.logger.Warn("request failed", "code", pe.Code, "status", pe.Status, "error", err)

	s.writeJSON(w, pe.Status, errorResponse{Error: errorBody{Code: pe.Code, Message: pe.Message}})
}

// writeJSON writes a JSON response with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode json response", "error", err)
	}
}
