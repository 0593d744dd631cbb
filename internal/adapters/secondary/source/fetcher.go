package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

const (
	// maxRedirects bounds a redirect chain; each hop re-runs the guard.
	maxRedirects = 5

	// retryAfterCap bounds how long a Retry-After header can stall a
	// retry, whatever the server asks for.
	retryAfterCap = 12 * time.Second

	// botSniffWindow is how much of the body the challenge-page sniff
	// inspects.
	botSniffWindow = 12 * 1024
)

// botMarkers appear in challenge and CAPTCHA interstitials. Matching is
// against the lowercased sniff window.
var botMarkers = []string{
	"just a moment",
	"checking your browser",
	"cf-chl",
	"captcha",
	"are you a robot",
	"ddos protection",
}

// statusError carries a non-2xx response through the retry loop with
// whatever backoff hint the server sent.
type statusError struct {
	status     int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// Fetcher downloads source URLs with retries, size bounds, and
// challenge-page detection. Every redirect target passes through
// GuardURL before it is followed.
type Fetcher struct {
	cfg    entities.FetchConfig
	client *http.Client
	clock  ports.Clock
	logger *logger.Logger
}

// NewFetcher creates a fetcher from config. clock and log may be nil.
func NewFetcher(cfg entities.FetchConfig, clock ports.Clock, log *logger.Logger) *Fetcher {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}

	client := &http.Client{
		Timeout: cfg.GetAttemptTimeout(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return entities.NewPipelineError(entities.CodeURLForbidden, "too many redirects")
			}
			if _, err := GuardURL(req.Context(), req.URL.String()); err != nil {
				return err
			}
			return nil
		},
	}

	return &Fetcher{cfg: cfg, client: client, clock: clock, logger: log}
}

// Fetch downloads u and returns the body, the declared content type, and
// the URL the response actually came from after redirects. Retryable
// failures (network errors, 408, 429, 5xx) are attempted up to
// 1 + MaxRetries times with doubling backoff and ±20% jitter.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, string, *url.URL, error) {
	attempts := 1 + f.cfg.GetMaxRetries()
	backoff := time.Second

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", nil, mapFetchError(err)
		}

		body, contentType, finalURL, err := f.fetchOnce(ctx, u)
		if err == nil {
			return body, contentType, finalURL, nil
		}
		lastErr = err

		if !retryableFetch(err) || attempt == attempts-1 {
			return nil, "", nil, mapFetchError(err)
		}

		sleepFor := backoff
		var se *statusError
		if errors.As(err, &se) && se.retryAfter > 0 {
			sleepFor = se.retryAfter
		}
		if sleepFor > retryAfterCap {
			sleepFor = retryAfterCap
		}
		sleepFor = jitter(sleepFor)

		f.logger.Warn("fetch retrying",
			"url", u.String(),
			"attempt", attempt+1,
			"max_attempts", attempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		f.clock.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, "", nil, mapFetchError(lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, u *url.URL) ([]byte, string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", nil, err
	}
	// Bare default-transport requests are the first thing bot walls
	// block; present as a browser.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ko;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	maxBytes := f.cfg.GetMaxBytes()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", nil, entities.NewPipelineError(entities.CodeFileNotFound,
			fmt.Sprintf("%s returned 404", u.Hostname()))

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Challenge pages usually answer 403; tell them apart from a
		// genuine denial so the caller knows a browser might succeed.
		window, _ := io.ReadAll(io.LimitReader(resp.Body, botSniffWindow))
		if sniffBotWall(window) {
			return nil, "", nil, entities.NewPipelineError(entities.CodeAntiBotDetected,
				fmt.Sprintf("%s served a bot challenge page", u.Hostname()))
		}
		return nil, "", nil, entities.NewPipelineError(entities.CodeURLForbidden,
			fmt.Sprintf("%s denied access (%d)", u.Hostname(), resp.StatusCode))

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, "", nil, &statusError{
			status:     resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), f.clock.Now()),
		}
	}

	// Declared PDFs skip the pre-read rejection: some servers send a
	// bogus Content-Length for binary downloads, and the limit reader
	// bounds the read anyway.
	if !isPDFContentType(contentType) && resp.ContentLength > maxBytes {
		return nil, "", nil, entities.NewPipelineError(entities.CodeSourceTooLarge,
			fmt.Sprintf("response declares %d bytes, limit is %d", resp.ContentLength, maxBytes))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, "", nil, entities.NewPipelineError(entities.CodeSourceTooLarge,
			fmt.Sprintf("response exceeds the %d byte limit", maxBytes))
	}

	// Soft blocks return 200 with a challenge page instead of content.
	if sniffBotWall(body) {
		return nil, "", nil, entities.NewPipelineError(entities.CodeAntiBotDetected,
			fmt.Sprintf("%s served a bot challenge page", u.Hostname()))
	}

	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	return body, contentType, finalURL, nil
}

// sniffBotWall reports whether the body head looks like a challenge or
// CAPTCHA interstitial rather than content.
func sniffBotWall(body []byte) bool {
	window := body
	if len(window) > botSniffWindow {
		window = window[:botSniffWindow]
	}
	page := strings.ToLower(string(window))

	for _, marker := range botMarkers {
		if strings.Contains(page, marker) {
			return true
		}
	}
	return strings.Contains(page, "access denied") && strings.Contains(page, "cloudflare")
}

func isPDFContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// jitter spreads a delay ±20% so synchronized clients do not retry in
// lockstep.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}

// retryableFetch reports whether another attempt could succeed. Typed
// pipeline errors are final decisions and never retried.
func retryableFetch(err error) bool {
	var pe *entities.PipelineError
	if errors.As(err, &pe) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusRequestTimeout ||
			se.status == http.StatusTooManyRequests ||
			se.status >= 500
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// mapFetchError converts transport failures to the error taxonomy.
// Guard violations surfaced through redirects pass through as-is.
func mapFetchError(err error) error {
	if err == nil {
		return nil
	}

	var pe *entities.PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	var se *statusError
	if errors.As(err, &se) {
		return entities.WrapPipelineError(entities.CodeURLConnectionFailed,
			fmt.Sprintf("request kept failing with status %d", se.status), err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return entities.WrapPipelineError(entities.CodeURLTimeout, "request timed out", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return entities.WrapPipelineError(entities.CodeURLConnectionFailed, "could not resolve host", err)
	}

	return entities.WrapPipelineError(entities.CodeURLConnectionFailed, "could not reach the server", err)
}
