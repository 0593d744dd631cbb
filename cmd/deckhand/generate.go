package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

var (
	// Generate command flags
	markdownFile string
	projectName  string
	localeFlag   string
	modelFlag    string
	healFlag     int
	outPath      string
	showQuality  bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [url-or-path]",
	Short: "Generate a slide deck from a document",
	Long: `Run the generation pipeline once from the terminal and print the
deck as JSON. The argument is a web URL or a local file path (markdown,
text, HTML, or PDF); --markdown-file submits a markdown file directly.

Example:
  deckhand generate https://example.com/launch-plan
  deckhand generate ./notes/roadmap.md --out deck.json
  deckhand generate --markdown-file README.md --quality`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&markdownFile, "markdown-file", "", "Markdown file to submit as inline markdown")
	generateCmd.Flags().StringVar(&projectName, "project-name", "", "Project name for the title slide (overrides the derived name)")
	generateCmd.Flags().StringVar(&localeFlag, "locale", "", "Output language, e.g. en or ko")
	generateCmd.Flags().StringVar(&modelFlag, "model", "", "AI model for this run (overrides config)")
	generateCmd.Flags().IntVar(&healFlag, "heal-threshold", 0, "Quality score below which decks are repaired (overrides config)")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the deck JSON to a file instead of stdout")
	generateCmd.Flags().BoolVar(&showQuality, "quality", false, "Print the quality report after generating")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfiguration(cmd, map[string]interface{}{
		"locale":         localeFlag,
		"model":          modelFlag,
		"heal-threshold": healFlag,
	})
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Keep stdout clean for the deck JSON: log only when asked to.
	log := logger.Nop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log, err = logger.New(cfg.Logging.GetMode(), string(cfg.Logging.GetLevel()))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer log.Sync()
	}

	clock := ports.SystemClock{}
	generator, _, err := buildPipeline(ctx, cfg, log, nil, clock)
	if err != nil {
		return err
	}

	result, err := generator.Generate(ctx, req)
	if err != nil {
		pe := entities.AsPipelineError(err)
		return fmt.Errorf("%s: %s", pe.Code, pe.Message)
	}

	if err := writeDeck(result, outPath); err != nil {
		return err
	}

	if showQuality {
		printQualityReport(result)
	}
	return nil
}

// buildRequest translates CLI arguments into a generation request
func buildRequest(args []string) (entities.GenerationRequest, error) {
	req := entities.GenerationRequest{
		UserID:      "cli",
		ProjectName: projectName,
		Locale:      localeFlag,
	}

	switch {
	case markdownFile != "" && len(args) > 0:
		return req, errors.New("provide either a url/path argument or --markdown-file, not both")
	case markdownFile != "":
		data, err := os.ReadFile(markdownFile) // #nosec G304 - user-supplied CLI path
		if err != nil {
			return req, fmt.Errorf("reading markdown file: %w", err)
		}
		req.Markdown = string(data)
		req.FileName = filepath.Base(markdownFile)
	case len(args) == 1:
		req.URL = args[0]
	default:
		return req, errors.New("provide a url/path argument or --markdown-file")
	}
	return req, nil
}

// writeDeck emits the slide array as indented JSON to stdout or a file
func writeDeck(result *entities.GenerationResult, path string) error {
	payload, err := json.MarshalIndent(result.Deck.Slides, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding deck: %w", err)
	}
	payload = append(payload, '\n')

	if path == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("writing deck to %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Deck written to %s\n", path)
	return nil
}

// printQualityReport renders the quality report to stderr so stdout
// stays machine-readable
func printQualityReport(result *entities.GenerationResult) {
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "METRIC\tVALUE\n")
	_, _ = fmt.Fprintf(w, "structure\t%d\n", result.Quality.Structure)
	_, _ = fmt.Fprintf(w, "readability\t%d\n", result.Quality.Readability)
	_, _ = fmt.Fprintf(w, "diversity\t%d\n", result.Quality.Diversity)
	_, _ = fmt.Fprintf(w, "overall\t%d\n", result.Quality.Overall)
	_, _ = fmt.Fprintf(w, "strategy\t%s\n", result.Meta.Strategy)
	_, _ = fmt.Fprintf(w, "slides\t%d\n", len(result.Deck.Slides))
	_, _ = fmt.Fprintf(w, "duration\t%s\n", result.Meta.Duration.Round(time.Millisecond))
	_ = w.Flush()

	for _, issue := range result.Quality.Issues {
		fmt.Fprintf(os.Stderr, "issue: %s\n", issue)
	}
}
