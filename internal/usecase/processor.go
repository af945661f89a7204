package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"ContentDigest/internal/dedup"
	"ContentDigest/internal/domain"
	"ContentDigest/internal/metrics"
	"ContentDigest/internal/ports"
)

const (
	defaultMinCleanedLength = 50
	defaultMaxKeywords      = 20
	defaultDomain           = "AI"
	defaultBaseAuthority    = 0.7
	defaultWorkers          = 8
)

// ProcessorSettings tunes the per-document pipeline.
type ProcessorSettings struct {
	MinCleanedLength int
	MaxKeywords      int
	Domain           string
	BaseAuthority    float64
	Workers          int
}

func (s ProcessorSettings) withDefaults() ProcessorSettings {
	if s.MinCleanedLength <= 0 {
		s.MinCleanedLength = defaultMinCleanedLength
	}
	if s.MaxKeywords <= 0 {
		s.MaxKeywords = defaultMaxKeywords
	}
	if s.Domain == "" {
		s.Domain = defaultDomain
	}
	if s.BaseAuthority <= 0 {
		s.BaseAuthority = defaultBaseAuthority
	}
	if s.Workers <= 0 {
		s.Workers = defaultWorkers
	}
	return s
}

// ProcessorDeps wires the pipeline stages. Dedup may be nil to disable admission checks.
type ProcessorDeps struct {
	Cleaner   ports.ContentCleaner
	Extractor ports.KeywordExtractor
	Scorer    ports.ImportanceScorer
	Dedup     *dedup.Cache
	Logger    *slog.Logger
	Clock     func() time.Time
	Settings  ProcessorSettings
}

// Processor runs RawDocuments through clean, extract, score and dedup.
type Processor struct {
	cleaner   ports.ContentCleaner
	extractor ports.KeywordExtractor
	scorer    ports.ImportanceScorer
	dedup     *dedup.Cache
	logger    *slog.Logger
	now       func() time.Time
	settings  ProcessorSettings
}

// BatchResult carries every per-document outcome in input order plus the successes sorted by
// importance.
type BatchResult struct {
	Processed []*domain.ProcessedContent
	Outcomes  []domain.Outcome
	Succeeded int
	Skipped   int
	Failed    int
}

// NewProcessor validates the stage dependencies.
func NewProcessor(deps ProcessorDeps) (*Processor, error) {
	if deps.Cleaner == nil {
		return nil, errors.New("processor: cleaner is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("processor: extractor is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("processor: scorer is required")
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	p := &Processor{
		cleaner:   deps.Cleaner,
		extractor: deps.Extractor,
		scorer:    deps.Scorer,
		dedup:     deps.Dedup,
		now:       now,
		settings:  deps.Settings.withDefaults(),
	}
	if deps.Logger != nil {
		p.logger = deps.Logger.With("component", "processor")
	}
	return p, nil
}

// Process runs one document through the state machine
// Received -> Cleaned -> KeywordsExtracted -> Scored -> Marked -> Emitted.
// Rejections come back as skips, panics inside a stage as failures.
func (p *Processor) Process(ctx context.Context, raw domain.RawDocument) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Failed(raw.ID, fmt.Errorf("process document %s: %v", raw.ID, r))
		}
		metrics.ObserveOutcome(out)
		p.logOutcome(raw, out)
	}()

	if ctx.Err() != nil {
		return domain.Skipped(raw.ID, domain.SkipCancelled)
	}
	if strings.TrimSpace(raw.Title) == "" || strings.TrimSpace(raw.Body) == "" {
		return domain.Skipped(raw.ID, domain.SkipMissingFields)
	}
	if p.dedup.SeenURL(ctx, raw.URL) {
		return domain.Skipped(raw.ID, domain.SkipDuplicateURL)
	}

	started := time.Now()
	cleaning := p.cleaner.Clean(raw.Body)
	metrics.ObserveStage("clean", started)

	cleaned := cleaning.CleanedText
	if utf8.RuneCountInString(cleaned) < p.settings.MinCleanedLength {
		return domain.Skipped(raw.ID, domain.SkipTooShort)
	}

	unlock := p.dedup.LockContent(cleaned)
	defer unlock()
	if p.dedup.SeenContent(ctx, cleaned) {
		return domain.Skipped(raw.ID, domain.SkipDuplicateContent)
	}
	if ctx.Err() != nil {
		return domain.Skipped(raw.ID, domain.SkipCancelled)
	}

	started = time.Now()
	keywords := p.extractor.ExtractKeywords(cleaned, p.settings.MaxKeywords, p.settings.Domain)
	entities := p.extractor.ExtractEntities(cleaned)
	topics := p.extractor.TopicsFromKeywords(keywords)
	metrics.ObserveStage("extract", started)

	content := &domain.ProcessedContent{
		ContentID:       raw.ID,
		Title:           raw.Title,
		CleanedText:     cleaned,
		Summary:         extractiveSummary(cleaned),
		Keywords:        keywords,
		Entities:        entities,
		Topics:          topics,
		Categories:      categorize(keywords, topics),
		Tags:            mergeTags(raw.Tags, keywords),
		Sentiment:       analyzeSentiment(cleaned),
		QualityScore:    cleaning.QualityScore,
		SourceAuthority: p.settings.BaseAuthority,
		Source:          sourceName(raw),
		Author:          raw.Author,
		PublishTime:     raw.PublishTime,
		URL:             raw.URL,
		ExtractedLinks:  cleaning.ExtractedLinks,
		Language:        p.extractor.DetectLanguage(cleaned),
		ProcessingTime:  p.now().UTC(),
	}

	started = time.Now()
	content.ImportanceScore = p.scorer.CalculateImportance(content)
	metrics.ObserveStage("score", started)

	if ctx.Err() != nil {
		return domain.Skipped(raw.ID, domain.SkipCancelled)
	}
	p.dedup.MarkProcessed(ctx, raw.URL, cleaned)

	return domain.Succeeded(raw.ID, content)
}

// ProcessBatch fans documents out to at most Workers goroutines. Once ctx is done no new
// document starts; those never started are reported as cancelled skips.
func (p *Processor) ProcessBatch(ctx context.Context, docs []domain.RawDocument) BatchResult {
	outcomes := make([]domain.Outcome, len(docs))
	for i := range docs {
		outcomes[i] = domain.Skipped(docs[i].ID, domain.SkipCancelled)
	}
	metrics.ObserveBatch(len(docs))

	var g errgroup.Group
	g.SetLimit(p.settings.Workers)
	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = p.Process(ctx, docs[i])
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Kind {
		case domain.OutcomeSuccess:
			result.Succeeded++
			result.Processed = append(result.Processed, o.Content)
		case domain.OutcomeSkipped:
			result.Skipped++
		case domain.OutcomeFailed:
			result.Failed++
		}
	}
	sort.SliceStable(result.Processed, func(i, j int) bool {
		return result.Processed[i].ImportanceScore > result.Processed[j].ImportanceScore
	})

	p.info("batch processed",
		"total", len(docs),
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result
}

// IsDuplicate checks and marks the content hash of text.
func (p *Processor) IsDuplicate(ctx context.Context, text string) bool {
	return p.dedup.IsDuplicate(ctx, text)
}

func sourceName(raw domain.RawDocument) string {
	if raw.SourceName != "" {
		return raw.SourceName
	}
	return raw.SourceID
}

func (p *Processor) logOutcome(raw domain.RawDocument, out domain.Outcome) {
	if p.logger == nil {
		return
	}
	switch out.Kind {
	case domain.OutcomeSkipped:
		p.logger.Info("document skipped", "id", raw.ID, "url", raw.URL, "reason", out.Reason)
	case domain.OutcomeFailed:
		p.logger.Error("document failed", "id", raw.ID, "url", raw.URL, "error", out.Err)
	default:
		p.logger.Debug("document processed", "id", raw.ID, "score", out.Content.ImportanceScore)
	}
}

func (p *Processor) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
