package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/deckhandhq/deckhand/internal/adapters/secondary/monitoring"
	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// Server exposes the generation pipeline over HTTP: three generate
// endpoints, a health endpoint, and the progress WebSocket.
type Server struct {
	hub       *ProgressHub
	monitor   *monitoring.Monitor
	config    *entities.Config
	logger    *logger.Logger
	throttle  *ipThrottle
	mu        sync.RWMutex
	generator ports.GeneratorService
	server    *http.Server
}

// NewServer wires the HTTP surface around a generator. The generator
// may be nil at construction and arrive later via SetGenerator; config
// must not be nil.
func NewServer(generator ports.GeneratorService, config *entities.Config, monitor *monitoring.Monitor, log *logger.Logger) *Server {
	if config == nil {
		panic("http: NewServer requires a config")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		generator: generator,
		monitor:   monitor,
		hub:       NewProgressHub(log),
		config:    config,
		logger:    log,
		throttle:  newIPThrottle(throttleLimit, throttleWindow),
	}
}

// Hub returns the progress hub so callers can wire it into the pipeline
// as its progress sink.
func (s *Server) Hub() *ProgressHub {
	return s.hub
}

// SetGenerator sets the generation service. Wiring is circular - the
// pipeline publishes to the server's hub - so the generator arrives
// after construction.
func (s *Server) SetGenerator(generator ports.GeneratorService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generator = generator
}

// getGenerator returns the generation service under the read lock
func (s *Server) getGenerator() ports.GeneratorService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator
}

// Start binds the listen address and begins serving in the background.
// Binding happens here, not in the serve goroutine, so a taken port
// surfaces as Start's error instead of a log line.
func (s *Server) Start(ctx context.Context, port int, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("server already running")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	go s.hub.Run(ctx)

	withCORS := cors.New(cors.Options{
		AllowedOrigins: s.config.Server.GetCORSOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-User-ID"},
		MaxAge:         300,
	}).Handler(s.setupRoutes())

	s.server = &http.Server{
		Handler:      withCORS,
		ReadTimeout:  s.config.Server.GetReadTimeout(),
		WriteTimeout: s.config.Server.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop disconnects WebSocket subscribers and shuts the listener down
// within the configured grace period.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return errors.New("server not running")
	}

	s.hub.CloseAll()

	ctx, cancel := context.WithTimeout(ctx, s.config.Server.GetShutdownTimeout())
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.server = nil
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// IsRunning reports whether the listener is up.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server != nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/ws/progress", s.handleProgressSocket)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate/url", s.handleGenerateURL).Methods(http.MethodPost)
	api.HandleFunc("/generate/markdown", s.handleGenerateMarkdown).Methods(http.MethodPost)
	api.HandleFunc("/generate/pdf", s.handleGeneratePDF).Methods(http.MethodPost)

	// Built inside-out. Recovery is outermost so panics anywhere in the
	// chain are caught; security headers go on before the throttle can
	// reject, so even 429 responses carry them.
	handler := throttleMiddleware(s.throttle, router)
	handler = securityHeadersMiddleware(handler)
	handler = createLoggingMiddleware(handler, s.logger, s.monitor)
	handler = createRecoveryMiddleware(handler, s.logger)

	return handler
}

var _ ports.ServerService = (*Server)(nil)
