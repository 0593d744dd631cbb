package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// minRepairTarget floors the repair target so pathologically thin source
// text still yields a usable deck.
const minRepairTarget = 3

// GenerationService coordinates the full pipeline: resolve, draft,
// normalize, repair, score, and self-heal, under a per-user single-flight
// lock and a hard deadline.
type GenerationService struct {
	resolver  ports.SourceResolver
	tokenizer ports.MarkdownTokenizer
	drafter   ports.SlideDrafter
	flights   ports.FlightStore
	progress  ports.ProgressSink
	clock     ports.Clock
	logger    *logger.Logger
	cfg       entities.GenerationConfig
}

// NewGenerationService creates the orchestrator. drafter may be nil,
// which disables the AI path entirely — every request then runs the
// deterministic generator. progress may be nil to disable events.
func NewGenerationService(
	resolver ports.SourceResolver,
	tokenizer ports.MarkdownTokenizer,
	drafter ports.SlideDrafter,
	flights ports.FlightStore,
	progress ports.ProgressSink,
	clock ports.Clock,
	log *logger.Logger,
	cfg entities.GenerationConfig,
) *GenerationService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if flights == nil {
		flights = NewFlightRegistry(clock)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GenerationService{
		resolver:  resolver,
		tokenizer: tokenizer,
		drafter:   drafter,
		flights:   flights,
		progress:  progress,
		clock:     clock,
		logger:    log,
		cfg:       cfg,
	}
}

// Generate runs one generation request end to end and returns the final
// deck with its quality report. AI-path failures never surface: the
// deterministic generator covers them. Only input-validation failures,
// the busy error, and the pipeline timeout reach the caller.
func (s *GenerationService) Generate(ctx context.Context, req entities.GenerationRequest) (*entities.GenerationResult, error) {
	start := s.clock.Now()

	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}
	locale := req.Locale
	if locale == "" {
		locale = s.cfg.GetLocale()
	}

	ok, heldFor := s.flights.Acquire(userID)
	if !ok {
		return nil, entities.NewPipelineError(entities.CodeGenerationBusy,
			fmt.Sprintf("a generation for this user has been running for %s", heldFor.Round(time.Second)))
	}
	// Release must run on every exit path, including panics unwinding
	// through here; the deck invariant depends on it.
	defer s.flights.Release(userID)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GetPipelineTimeout())
	defer cancel()

	s.publish(userID, ports.StageResolving, "")
	source, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		s.publish(userID, ports.StageFailed, string(entities.AsPipelineError(err).Code))
		return nil, err
	}

	projectName := req.ProjectName
	if projectName == "" {
		projectName = source.NameHint
	}

	var doc entities.MarkdownDocument
	if source.Type == entities.SourceTypeMarkdown {
		doc = s.tokenizer.Tokenize(source.Text)
	}

	s.publish(userID, ports.StageDrafting, "")
	drafts, strategy := s.draft(ctx, source, doc, projectName, locale)

	if err := deadlineError(ctx); err != nil {
		s.publish(userID, ports.StageFailed, string(entities.CodeGenerationTimeout))
		return nil, err
	}

	opts := NormalizeOptions{
		ProjectName: projectName,
		Locale:      locale,
		MaxSlides:   s.cfg.GetMaxSlides(),
	}

	s.publish(userID, ports.StageNormalizing, "")
	deck := NormalizeDeck(drafts, opts)
	deck = s.repairCount(deck, source, opts)

	s.publish(userID, ports.StageScoring, "")
	report := EvaluateDeck(deck)

	if strategy == entities.StrategyAI && report.Overall < s.cfg.GetHealThreshold() {
		s.publish(userID, ports.StageHealing, fmt.Sprintf("overall %d below threshold %d", report.Overall, s.cfg.GetHealThreshold()))
		deck, report, strategy = s.heal(deck, report, source, doc, projectName, opts)
	}

	if err := deadlineError(ctx); err != nil {
		s.publish(userID, ports.StageFailed, string(entities.CodeGenerationTimeout))
		return nil, err
	}

	s.publish(userID, ports.StageDone, "")
	s.logger.Info("generation finished",
		"user", userID,
		"source", source.Label,
		"strategy", strategy,
		"slides", deck.SlideCount(),
		"overall", report.Overall,
	)

	return &entities.GenerationResult{
		Deck:    deck,
		Quality: report,
		Meta: entities.GenerationMeta{
			ID:          uuid.New().String(),
			SourceLabel: source.Label,
			SourceType:  source.Type,
			ProjectName: projectName,
			Strategy:    strategy,
			Duration:    s.clock.Since(start),
			CreatedAt:   s.clock.Now(),
		},
	}, nil
}

// draft obtains the initial candidate: the AI path when a drafter is
// configured and succeeds, the deterministic generator otherwise.
func (s *GenerationService) draft(
	ctx context.Context,
	source entities.ResolvedSource,
	doc entities.MarkdownDocument,
	projectName, locale string,
) ([]entities.SlideDraft, entities.GenerationStrategy) {
	if s.drafter != nil {
		drafts, err := s.drafter.Draft(ctx, source, projectName, locale)
		if err == nil && len(drafts) > 0 {
			return drafts, entities.StrategyAI
		}
		if err != nil {
			s.logger.Warn("ai draft failed, using deterministic generator",
				"source", source.Label, "error", err)
		}
	}
	return FallbackDrafts(source, doc, projectName, locale), entities.StrategyFallback
}

// heal builds, repairs, and scores the deterministic candidate and
// returns the better of the two decks. Ties keep the AI deck.
func (s *GenerationService) heal(
	aiDeck entities.Deck,
	aiReport entities.QualityReport,
	source entities.ResolvedSource,
	doc entities.MarkdownDocument,
	projectName string,
	opts NormalizeOptions,
) (entities.Deck, entities.QualityReport, entities.GenerationStrategy) {
	drafts := FallbackDrafts(source, doc, projectName, opts.Locale)
	fbDeck := s.repairCount(NormalizeDeck(drafts, opts), source, opts)
	fbReport := EvaluateDeck(fbDeck)

	if fbReport.Overall > aiReport.Overall {
		return fbDeck, fbReport, entities.StrategyHealed
	}
	return aiDeck, aiReport, entities.StrategyAI
}

// repairCount brings the deck inside the slide bounds: short decks gain
// synthesized slides cycling card-grid, timeline, and quote layouts
// seeded by source sentences; long decks are cut at the ceiling.
func (s *GenerationService) repairCount(deck entities.Deck, source entities.ResolvedSource, opts NormalizeOptions) entities.Deck {
	target := s.cfg.GetMinSlides()
	if target < minRepairTarget {
		target = minRepairTarget
	}
	if target > opts.MaxSlides {
		target = opts.MaxSlides
	}

	pool := sentencePool(source.Text)
	for i := 0; deck.SlideCount() < target; i++ {
		draft := synthDraft(i, pool, opts.Locale)
		deck.Slides = append(deck.Slides, NormalizeSlide(draft, opts))
	}

	if deck.SlideCount() > opts.MaxSlides {
		deck.Slides = deck.Slides[:opts.MaxSlides]
	}
	return deck
}

// synthDraft builds the i-th synthesized repair slide. The type cycles
// card-grid, timeline, quote; the seed sentences rotate through the pool
// so consecutive slides differ.
func synthDraft(i int, pool []string, locale string) entities.SlideDraft {
	seeds := rotateSeeds(pool, i*3, 3)

	switch i % 3 {
	case 0:
		return newDraft(entities.SlideTypeCardGrid, map[string]interface{}{
			"title": keyPointsTitle(locale),
			"items": seeds,
		})
	case 1:
		return newDraft(entities.SlideTypeTimeline, map[string]interface{}{
			"title": overviewTitle(locale),
			"items": seeds,
		})
	default:
		quote := ""
		if len(seeds) > 0 {
			quote = seeds[0]
		}
		return newDraft(entities.SlideTypeQuote, map[string]interface{}{
			"quote": quote,
		})
	}
}

// rotateSeeds takes up to n entries from pool starting at off, wrapping
// around.
func rotateSeeds(pool []string, off, n int) []string {
	if len(pool) == 0 {
		return nil
	}
	var out []string
	for i := 0; i < n && i < len(pool); i++ {
		out = append(out, pool[(off+i)%len(pool)])
	}
	return out
}

func (s *GenerationService) publish(userID, stage, detail string) {
	if s.progress == nil {
		return
	}
	s.progress.Publish(ports.ProgressEvent{UserID: userID, Stage: stage, Detail: detail})
}

// deadlineError maps context expiry to the pipeline's typed errors.
func deadlineError(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return entities.WrapPipelineError(entities.CodeGenerationTimeout,
			"generation exceeded the pipeline deadline", ctx.Err())
	case ctx.Err() != nil:
		return entities.WrapPipelineError(entities.CodeInternal,
			"generation canceled", ctx.Err())
	default:
		return nil
	}
}
