package ports

import (
	"context"
	"time"

	"ContentDigest/internal/domain"
)

// DocumentSource pulls fresh raw documents from upstream collectors.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, since time.Time) ([]domain.RawDocument, error)
}

// KeyValueCache is the dedup backend. Every call is idempotent and may fail on its own.
type KeyValueCache interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ContentRepository persists processed content and serves report corpora.
type ContentRepository interface {
	SaveProcessed(ctx context.Context, content domain.ProcessedContent) error
	ListBetween(ctx context.Context, start, end time.Time) ([]domain.ProcessedContent, error)
}

// Summarizer generates natural-language summaries over a set of processed items.
type Summarizer interface {
	Summarize(ctx context.Context, contents []*domain.ProcessedContent, maxLength int) (string, error)
}

// ContentCleaner strips markup and noise from raw bodies.
type ContentCleaner interface {
	Clean(raw string) domain.CleaningResult
}

// KeywordExtractor derives keywords, entities, topics and language from cleaned text.
type KeywordExtractor interface {
	ExtractKeywords(text string, maxKeywords int, domainName string) []domain.Keyword
	ExtractEntities(text string) []domain.Entity
	TopicsFromKeywords(keywords []domain.Keyword) []string
	DetectLanguage(text string) string
}

// ImportanceScorer computes the bounded importance of a processed document.
type ImportanceScorer interface {
	CalculateImportance(content *domain.ProcessedContent) float64
}

// Scheduler controls when ingest cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
