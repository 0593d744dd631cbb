package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/deckhandhq/deckhand/internal/adapters/primary/http"
	"github.com/deckhandhq/deckhand/internal/adapters/secondary/ai"
	"github.com/deckhandhq/deckhand/internal/adapters/secondary/config"
	"github.com/deckhandhq/deckhand/internal/adapters/secondary/extract"
	"github.com/deckhandhq/deckhand/internal/adapters/secondary/markdown"
	"github.com/deckhandhq/deckhand/internal/adapters/secondary/monitoring"
	"github.com/deckhandhq/deckhand/internal/adapters/secondary/source"
	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/domain/services"
	"github.com/deckhandhq/deckhand/internal/logger"
)

var (
	// Serve command flags
	servePort int
	serveHost string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deck generation API server",
	Long: `Start the HTTP server exposing the generation API: POST
/api/generate/{url,markdown,pdf}, GET /healthz, and a WebSocket progress
stream at /ws/progress.

Example:
  deckhand serve
  deckhand serve --port 9000 --host 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Add command flags - defaults will be overridden by config loading
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to serve on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	verbose, _ := cmd.Flags().GetBool("verbose")
	flags := map[string]interface{}{
		"port":    servePort,
		"host":    serveHost,
		"verbose": verbose,
	}

	// Load and validate configuration
	cfg, err := loadConfiguration(cmd, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging.GetMode(), string(cfg.Logging.GetLevel()))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	// Wire the pipeline behind the server's progress hub
	clock := ports.SystemClock{}
	monitor := monitoring.NewMonitor()
	server := httpadapter.NewServer(nil, cfg, monitor, log)

	generator, flights, err := buildPipeline(ctx, cfg, log, server.Hub(), clock)
	if err != nil {
		return err
	}
	server.SetGenerator(generator)

	// Stale single-flight locks outlive their pipeline only after a lost
	// release; sweep them at twice the pipeline deadline.
	sweepAge := 2 * cfg.Generation.GetPipelineTimeout()
	go sweepFlights(ctx, flights, sweepAge, log)

	// Start binds synchronously, so a taken port fails right here
	if err := server.Start(ctx, cfg.Server.Port, cfg.Server.Host); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	fmt.Printf("deckhand API listening at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	// Block until the root context is canceled by SIGINT/SIGTERM
	<-ctx.Done()

	if err := server.Stop(context.Background()); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}

// sweepFlights periodically evicts stale single-flight locks
func sweepFlights(ctx context.Context, flights *services.FlightRegistry, age time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(age)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := flights.Sweep(age); n > 0 {
				log.Warn("swept stale generation locks", "count", n)
			}
		}
	}
}

// loadConfiguration resolves config with full precedence: defaults →
// config file (explicit --config, else ./deckhand.toml, else the
// per-user file) → environment → CLI flags.
func loadConfiguration(cmd *cobra.Command, flags map[string]interface{}) (*entities.Config, error) {
	resolver := services.NewConfigResolver(config.NewTOMLStore(), config.NewMerger())

	explicit, _ := cmd.Flags().GetString("config")
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return resolver.Resolve(wd, explicit, flags)
}

// buildPipeline wires the resolver, tokenizer, and drafter into a
// generation service. The drafter is nil when no API key is configured;
// the pipeline then runs the deterministic generator only.
func buildPipeline(ctx context.Context, cfg *entities.Config, log *logger.Logger, progress ports.ProgressSink, clock ports.Clock) (*services.GenerationService, *services.FlightRegistry, error) {
	flights := services.NewFlightRegistry(clock)

	fetcher := source.NewFetcher(cfg.Fetch, clock, log)
	pdfExtractor := extract.NewPDFExtractor(cfg.Files.GetMaxPDFBytes())
	htmlExtractor := extract.NewHTMLExtractor()
	resolver := source.NewResolver(fetcher, pdfExtractor, htmlExtractor, cfg.Files, log)
	tokenizer := markdown.NewGoldmarkTokenizer()

	drafter, err := ai.NewDrafterFromConfig(ctx, cfg.AI, log)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring ai provider: %w", err)
	}

	// A typed nil pointer must not reach the interface field, or the
	// orchestrator would call through it.
	var slideDrafter ports.SlideDrafter
	if drafter != nil {
		slideDrafter = drafter
		log.Info("ai drafter enabled", "provider", cfg.AI.GetProvider(), "model", cfg.AI.GetModel())
	} else {
		log.Info("no api key configured, deterministic generation only")
	}

	generator := services.NewGenerationService(
		resolver,
		tokenizer,
		slideDrafter,
		flights,
		progress,
		clock,
		log,
		cfg.Generation,
	)
	return generator, flights, nil
}
