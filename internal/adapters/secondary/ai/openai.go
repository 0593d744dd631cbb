package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"

	// completionRetryAfterCap bounds how long a Retry-After header can
	// push out a retry, whatever the server asks for.
	completionRetryAfterCap = 10 * time.Second
)

// OpenAIClient implements ports.CompletionClient against any
// chat-completions compatible endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
	clock      ports.Clock
	logger     *logger.Logger
}

// NewOpenAIClient creates a client. baseURL may be empty for the public
// API; log may be nil.
func NewOpenAIClient(baseURL, apiKey, model string, log *logger.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		maxRetries: 2,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		clock:      ports.SystemClock{},
		logger:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiStatusError struct {
	status     int
	retryAfter time.Duration
	body       string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("chat completions http %d: %s", e.status, e.body)
}

// Complete posts the conversation and returns the first choice's text.
// Rate limits and server errors retry with doubling backoff.
func (c *OpenAIClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	if req.ForceJSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := c.doOnce(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryableCompletion(err) || attempt == c.maxRetries {
			return "", err
		}

		sleepFor := backoff
		var statusErr *apiStatusError
		if errors.As(err, &statusErr) && statusErr.retryAfter > 0 {
			sleepFor = statusErr.retryAfter
		}
		if sleepFor > completionRetryAfterCap {
			sleepFor = completionRetryAfterCap
		}
		sleepFor = jitterCompletion(sleepFor)

		c.logger.Warn("chat completion retrying",
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		c.clock.Sleep(sleepFor)
		backoff *= 2
	}
	return "", lastErr
}

func (c *OpenAIClient) doOnce(ctx context.Context, payload chatRequest) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apiStatusError{
			status:     resp.StatusCode,
			retryAfter: completionRetryAfter(resp.Header.Get("Retry-After")),
			body:       truncateBody(raw),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func retryableCompletion(err error) bool {
	var statusErr *apiStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status == http.StatusRequestTimeout ||
			statusErr.status == http.StatusTooManyRequests ||
			statusErr.status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// completionRetryAfter parses the delta-seconds form rate limit
// responses use.
func completionRetryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// jitterCompletion spreads a delay ±20% so parallel generations do not
// hammer a recovering endpoint in lockstep.
func jitterCompletion(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}

func truncateBody(raw []byte) string {
	const max = 2048
	if len(raw) > max {
		return string(raw[:max]) + "…"
	}
	return string(raw)
}
