package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deckhandhq/deckhand/internal/adapters/secondary/monitoring"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// statusWriter captures the status and byte count for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack exposes the underlying connection so the WebSocket upgrade
// works through the middleware chain.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// createLoggingMiddleware logs one line per request and counts it on
// the monitor when one is present.
func createLoggingMiddleware(next http.Handler, log *logger.Logger, monitor *monitoring.Monitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		if monitor != nil {
			monitor.RecordHTTPRequest()
		}
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration", time.Since(start),
		)
	})
}

// securityHeaders go on every response. The API serves JSON only, so
// the CSP forbids loading anything; ws: covers the progress socket.
var securityHeaders = map[string]string{
	"Content-Security-Policy": "default-src 'none'; connect-src 'self' ws: wss:; frame-ancestors 'none'",
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Server":                  "",
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

const (
	// throttleLimit requests per throttleWindow per client IP.
	throttleLimit  = 100
	throttleWindow = time.Minute

	// When the map reaches this size, expired windows are pruned before
	// a new client is admitted.
	throttlePruneSize = 4096
)

// ipThrottle caps request rates per client IP over a fixed window.
// Idle entries are pruned inline, so no background goroutine is needed.
type ipThrottle struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seen   map[string]*ipWindow
}

type ipWindow struct {
	start time.Time
	count int
}

func newIPThrottle(limit int, window time.Duration) *ipThrottle {
	return &ipThrottle{
		limit:  limit,
		window: window,
		seen:   make(map[string]*ipWindow),
	}
}

// allow reports whether ip may make another request right now.
func (t *ipThrottle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	w, ok := t.seen[ip]
	if !ok || now.Sub(w.start) >= t.window {
		if !ok && len(t.seen) >= throttlePruneSize {
			t.prune(now)
		}
		t.seen[ip] = &ipWindow{start: now, count: 1}
		return true
	}

	if w.count >= t.limit {
		return false
	}
	w.count++
	return true
}

// prune drops expired windows. Caller holds the lock.
func (t *ipThrottle) prune(now time.Time) {
	for ip, w := range t.seen {
		if now.Sub(w.start) >= t.window {
			delete(t.seen, ip)
		}
	}
}

// throttleMiddleware rejects clients that exceed the per-IP budget. The
// Retry-After hint is the window length: by then the client's window has
// rolled over no matter when it started.
func throttleMiddleware(t *ipThrottle, next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(t.window / time.Second))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(clientIP(r)) {
			w.Header().Set("Retry-After", retryAfter)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller's IP, trusting proxy headers first.
func clientIP(r *http.Request) string {
	for _, h := range []string{"X-Forwarded-For", "X-Real-IP"} {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For may carry a hop chain; the first entry is the
		// client.
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// createRecoveryMiddleware converts handler panics into 500s so one bad
// request cannot take the server down.
func createRecoveryMiddleware(next http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.Error("panic recovered in http handler", "error", v, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
