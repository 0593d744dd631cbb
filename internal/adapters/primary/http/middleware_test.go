package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/adapters/secondary/monitoring"
	"github.com/deckhandhq/deckhand/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := securityHeadersMiddleware(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
}

func TestLoggingMiddleware_CountsRequests(t *testing.T) {
	monitor := monitoring.NewMonitor()
	handler := createLoggingMiddleware(okHandler(), logger.Nop(), monitor)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
	assert.Equal(t, int64(1), monitor.Snapshot().HTTPRequests)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})
	handler := createRecoveryMiddleware(panicking, logger.Nop())

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIPThrottle_Allow(t *testing.T) {
	throttle := newIPThrottle(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, throttle.allow("198.51.100.1"), "request %d should pass", i+1)
	}
	assert.False(t, throttle.allow("198.51.100.1"))

	// Other clients keep their own budget.
	assert.True(t, throttle.allow("198.51.100.2"))
}

func TestIPThrottle_WindowExpires(t *testing.T) {
	throttle := newIPThrottle(1, 20*time.Millisecond)

	assert.True(t, throttle.allow("198.51.100.3"))
	assert.False(t, throttle.allow("198.51.100.3"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, throttle.allow("198.51.100.3"))
}

func TestIPThrottle_PruneEvictsExpired(t *testing.T) {
	throttle := newIPThrottle(1, time.Minute)
	stale := time.Now().Add(-2 * time.Minute)
	throttle.seen["198.51.100.4"] = &ipWindow{start: stale, count: 1}
	throttle.seen["198.51.100.5"] = &ipWindow{start: time.Now(), count: 1}

	throttle.prune(time.Now())

	assert.NotContains(t, throttle.seen, "198.51.100.4")
	assert.Contains(t, throttle.seen, "198.51.100.5")
}

func TestThrottleMiddleware(t *testing.T) {
	handler := throttleMiddleware(newIPThrottle(3, time.Minute), okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.99")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, send().Code, "request %d should pass", i+1)
	}

	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded for wins", "198.51.100.9", "203.0.113.1", "192.0.2.1:1234", "198.51.100.9"},
		{"forwarded chain takes the first hop", "198.51.100.9, 70.41.3.18", "", "192.0.2.1:1234", "198.51.100.9"},
		{"invalid forwarded falls through", "not-an-ip", "203.0.113.1", "192.0.2.1:1234", "203.0.113.1"},
		{"real ip", "", "203.0.113.1", "192.0.2.1:1234", "203.0.113.1"},
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.7", "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestStatusWriter_CapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	n, err := sw.Write([]byte("missing"))

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, 7, sw.bytes)
}
