package entities

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Config carries every runtime setting deckhand reads. The zero value is
// valid: each section falls back to built-in defaults through its Get*
// accessors, so a config file only needs the tables it wants to change.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Fetch      FetchConfig      `toml:"fetch"`
	Files      FilesConfig      `toml:"files"`
	AI         AIConfig         `toml:"ai"`
	Logging    LoggingConfig    `toml:"logging"`
}

// Validate checks every section and wraps the first failure with the
// section name.
func (c *Config) Validate() error {
	sections := []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"generation", c.Generation.Validate},
		{"fetch", c.Fetch.Validate},
		{"files", c.Files.Validate},
		{"ai", c.AI.Validate},
		{"logging", c.Logging.Validate},
	}

	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s config: %w", s.name, err)
		}
	}
	return nil
}

// Clone returns a copy of c that shares no slices with the original, so
// overlay layers can be stacked without mutating their inputs.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	dup := *c
	dup.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	dup.Files.AllowedRoots = slices.Clone(c.Files.AllowedRoots)
	return &dup
}

// ServerConfig tunes the HTTP listener. Timeouts are whole seconds in
// TOML; the Get* accessors convert and default them.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     int      `toml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	Environment     string   `toml:"environment"`
	CORSOrigins     []string `toml:"cors_origins"`
}

// Validate checks the listener settings. A non-IP host only needs to
// look like a hostname here; whether it resolves is the listener's
// problem and surfaces as a bind error at startup.
func (s ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}

	if s.Host != "" && net.ParseIP(s.Host) == nil {
		if strings.ContainsAny(s.Host, " /@") {
			return fmt.Errorf("invalid host: %s", s.Host)
		}
	}

	for _, t := range []struct {
		label string
		value int
	}{
		{"read", s.ReadTimeout},
		{"write", s.WriteTimeout},
		{"shutdown", s.ShutdownTimeout},
	} {
		if t.value < 0 {
			return fmt.Errorf("%s timeout must be non-negative", t.label)
		}
	}

	switch s.Environment {
	case "", "development", "production":
	default:
		return fmt.Errorf("unknown environment: %s (must be development or production)", s.Environment)
	}

	for _, origin := range s.CORSOrigins {
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}
	return nil
}

// validateOrigin accepts "*", "*." domain wildcards, and absolute
// http(s) URLs: the same forms the WebSocket origin check matches
// against.
func validateOrigin(origin string) error {
	if origin == "" {
		return errors.New("CORS origin cannot be empty")
	}
	if origin == "*" {
		return nil
	}
	if domain, ok := strings.CutPrefix(origin, "*."); ok {
		if domain == "" || strings.ContainsAny(domain, "/ ") {
			return fmt.Errorf("invalid CORS origin format: %s", origin)
		}
		return nil
	}
	if u, err := url.Parse(origin); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid CORS origin format: %s (must start with http:// or https://)", origin)
	}
	return nil
}

// GetReadTimeout returns the request read deadline.
func (s ServerConfig) GetReadTimeout() time.Duration {
	return secondsOr(s.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the response write deadline. Generation holds
// the response open for the full pipeline run, so this must stay above
// the pipeline timeout.
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return secondsOr(s.WriteTimeout, 60*time.Second)
}

// GetShutdownTimeout bounds how long Stop waits for in-flight requests.
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	return secondsOr(s.ShutdownTimeout, 5*time.Second)
}

// defaultCORSOrigins covers the usual local frontend dev ports plus the
// API's own port.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:8080",
	"http://127.0.0.1:8080",
}

// GetCORSOrigins returns the allow list, defaulting to local origins.
func (s ServerConfig) GetCORSOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return defaultCORSOrigins
	}
	return s.CORSOrigins
}

// IsDevelopment reports whether relaxed origin checks apply. An unset
// environment counts as development.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "" || s.Environment == "development"
}

// GenerationConfig bounds the deck-building pipeline.
type GenerationConfig struct {
	MinSlides       int    `toml:"min_slides"`
	MaxSlides       int    `toml:"max_slides"`
	HealThreshold   int    `toml:"heal_threshold"`
	PipelineTimeout int    `toml:"pipeline_timeout"`
	Locale          string `toml:"locale"`
}

// Validate checks the pipeline bounds.
func (g GenerationConfig) Validate() error {
	if g.MinSlides < 0 {
		return errors.New("min slides must be non-negative")
	}
	if g.MaxSlides < 0 {
		return errors.New("max slides must be non-negative")
	}
	if g.MinSlides > 0 && g.MaxSlides > 0 && g.MinSlides > g.MaxSlides {
		return errors.New("min slides cannot exceed max slides")
	}
	if g.HealThreshold < 0 || g.HealThreshold > 100 {
		return errors.New("heal threshold must be between 0 and 100")
	}
	if g.PipelineTimeout < 0 {
		return errors.New("pipeline timeout must be non-negative")
	}
	return nil
}

// GetMinSlides returns the minimum deck length with default
func (g GenerationConfig) GetMinSlides() int {
	if g.MinSlides <= 0 {
		return MinSlides
	}
	return g.MinSlides
}

// GetMaxSlides returns the maximum deck length with default
func (g GenerationConfig) GetMaxSlides() int {
	if g.MaxSlides <= 0 {
		return MaxSlides
	}
	return g.MaxSlides
}

// DefaultHealThreshold is the overall quality score at or above which an
// AI-generated deck is accepted without comparing it to the deterministic
// candidate.
const DefaultHealThreshold = 60

// GetHealThreshold returns the self-healing score threshold with default
func (g GenerationConfig) GetHealThreshold() int {
	if g.HealThreshold <= 0 {
		return DefaultHealThreshold
	}
	return g.HealThreshold
}

// GetPipelineTimeout returns the deadline for one full generation run.
func (g GenerationConfig) GetPipelineTimeout() time.Duration {
	return secondsOr(g.PipelineTimeout, 45*time.Second)
}

// GetLocale returns the output locale with default
func (g GenerationConfig) GetLocale() string {
	if g.Locale == "" {
		return "en"
	}
	return g.Locale
}

// FetchConfig bounds outbound URL fetches.
type FetchConfig struct {
	AttemptTimeout int   `toml:"attempt_timeout"`
	MaxRetries     int   `toml:"max_retries"`
	MaxBytes       int64 `toml:"max_bytes"`
}

// Validate checks the fetch bounds.
func (f FetchConfig) Validate() error {
	if f.AttemptTimeout < 0 {
		return errors.New("attempt timeout must be non-negative")
	}
	if f.MaxRetries < 0 {
		return errors.New("max retries must be non-negative")
	}
	if f.MaxBytes < 0 {
		return errors.New("max bytes must be non-negative")
	}
	return nil
}

// GetAttemptTimeout returns the per-attempt fetch timeout.
func (f FetchConfig) GetAttemptTimeout() time.Duration {
	return secondsOr(f.AttemptTimeout, 12*time.Second)
}

// GetMaxRetries returns the retry budget with default
func (f FetchConfig) GetMaxRetries() int {
	if f.MaxRetries <= 0 {
		return 2
	}
	return f.MaxRetries
}

// GetMaxBytes returns the response size ceiling with default
func (f FetchConfig) GetMaxBytes() int64 {
	if f.MaxBytes <= 0 {
		return defaultMaxDocumentBytes
	}
	return f.MaxBytes
}

// FilesConfig controls local file path resolution.
type FilesConfig struct {
	AllowedRoots []string `toml:"allowed_roots"`
	MaxPDFBytes  int64    `toml:"max_pdf_bytes"`
}

// Validate checks the file access settings.
func (f FilesConfig) Validate() error {
	for _, root := range f.AllowedRoots {
		if root == "" {
			return errors.New("allowed root cannot be empty")
		}
		if !filepath.IsAbs(root) && !strings.HasPrefix(root, "~") {
			return fmt.Errorf("allowed root must be absolute or ~-relative: %s", root)
		}
	}
	if f.MaxPDFBytes < 0 {
		return errors.New("max pdf bytes must be non-negative")
	}
	return nil
}

// GetAllowedRoots returns the file allow-list with defaults: the user's
// home directory and the working directory.
func (f FilesConfig) GetAllowedRoots() []string {
	if len(f.AllowedRoots) > 0 {
		return f.AllowedRoots
	}

	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, home)
	}
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	return roots
}

// GetMaxPDFBytes returns the PDF size ceiling with default
func (f FilesConfig) GetMaxPDFBytes() int64 {
	if f.MaxPDFBytes <= 0 {
		return defaultMaxDocumentBytes
	}
	return f.MaxPDFBytes
}

// AIConfig configures the completion client. The API key is read from
// the environment only so it never lands in a config file.
type AIConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKeyEnv   string  `toml:"api_key_env"`
	BaseURL     string  `toml:"base_url"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// Validate checks the completion client settings.
func (a AIConfig) Validate() error {
	switch a.Provider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("unknown ai provider: %s (must be gemini or openai)", a.Provider)
	}

	if a.BaseURL != "" {
		if !strings.HasPrefix(a.BaseURL, "http://") && !strings.HasPrefix(a.BaseURL, "https://") {
			return fmt.Errorf("ai base URL must start with http:// or https://: %s", a.BaseURL)
		}
	}

	if a.Temperature < 0 || a.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if a.MaxTokens < 0 {
		return errors.New("max tokens must be non-negative")
	}
	return nil
}

// GetProvider returns the provider with default
func (a AIConfig) GetProvider() string {
	if a.Provider == "" {
		return "gemini"
	}
	return a.Provider
}

// GetModel returns the model name with a per-provider default
func (a AIConfig) GetModel() string {
	if a.Model != "" {
		return a.Model
	}
	if a.GetProvider() == "openai" {
		return "gpt-4o-mini"
	}
	return "gemini-2.0-flash"
}

// GetAPIKey reads the API key from the configured environment variable.
// An empty result is not an error: the pipeline silently degrades to the
// deterministic generator.
func (a AIConfig) GetAPIKey() string {
	name := a.APIKeyEnv
	if name == "" {
		if a.GetProvider() == "openai" {
			name = "OPENAI_API_KEY"
		} else {
			name = "GEMINI_API_KEY"
		}
	}
	return os.Getenv(name)
}

// GetTemperature returns the sampling temperature with default
func (a AIConfig) GetTemperature() float64 {
	if a.Temperature <= 0 {
		return 0.4
	}
	return a.Temperature
}

// GetMaxTokens returns the completion token ceiling with default
func (a AIConfig) GetMaxTokens() int {
	if a.MaxTokens <= 0 {
		return 4096
	}
	return a.MaxTokens
}

// LogLevel names a logging severity threshold.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig selects log verbosity and encoder.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	Mode  string `toml:"mode"`  // development or production encoder
}

// Validate checks the logging settings.
func (l LoggingConfig) Validate() error {
	switch LogLevel(l.Level) {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l.Level)
	}

	switch l.Mode {
	case "", "development", "production":
	default:
		return fmt.Errorf("invalid log mode: %s (must be development or production)", l.Mode)
	}
	return nil
}

// GetLevel returns the log level with default
func (l LoggingConfig) GetLevel() LogLevel {
	if l.Level == "" {
		return LogLevelInfo
	}
	return LogLevel(l.Level)
}

// GetMode returns the encoder mode with default
func (l LoggingConfig) GetMode() string {
	if l.Mode == "" {
		return "development"
	}
	return l.Mode
}

// secondsOr converts a whole-seconds setting to a Duration, substituting
// fallback when the field is unset.
func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// defaultMaxDocumentBytes caps fetched pages and local PDFs alike.
const defaultMaxDocumentBytes = 8 << 20
