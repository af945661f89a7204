package domain

import "time"

// SourceType tells which collector produced a raw document.
type SourceType string

const (
	SourceRSS SourceType = "rss"
	SourceWeb SourceType = "web"
)

// RawDocument is an unprocessed item as delivered by a collector. Immutable once produced.
type RawDocument struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id"`
	SourceType    SourceType `json:"source_type"`
	SourceName    string     `json:"source_name"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	URL           string     `json:"url"`
	Author        string     `json:"author,omitempty"`
	PublishTime   *time.Time `json:"publish_time,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CollectedTime time.Time  `json:"collected_time"`
}

// CleaningResult is produced per Clean invocation.
type CleaningResult struct {
	CleanedText    string
	ExtractedLinks []string
	QualityScore   float64
}

// KeywordKind names the extractor that produced a keyword.
type KeywordKind string

const (
	KeywordTFIDF      KeywordKind = "tfidf"
	KeywordTextRank   KeywordKind = "textrank"
	KeywordDomainTerm KeywordKind = "domainTerm"
	KeywordFrequency  KeywordKind = "frequency"
)

// Keyword is a scored term in [0,1].
type Keyword struct {
	Term  string      `json:"term"`
	Score float64     `json:"score"`
	Kind  KeywordKind `json:"kind"`
}

// EntityLabel classifies a named entity.
type EntityLabel string

const (
	EntityOrg     EntityLabel = "ORG"
	EntityProduct EntityLabel = "PRODUCT"
)

// Entity is a rule-extracted named entity.
type Entity struct {
	Text       string      `json:"text"`
	Label      EntityLabel `json:"label"`
	Confidence float64     `json:"confidence"`
}

// SentimentLabel is the coarse polarity of a document.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment holds the polarity label with its per-class scores.
type Sentiment struct {
	Label      SentimentLabel     `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// EngagementMetrics are optional social counters supplied by the collector.
type EngagementMetrics struct {
	Views    int64 `json:"views"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
	Likes    int64 `json:"likes"`
}

// ProcessedContent is the scored, enriched output of the pipeline. It is created once per
// admitted RawDocument and only ImportanceScore is assigned after construction.
type ProcessedContent struct {
	ContentID       string             `json:"content_id"`
	Title           string             `json:"title"`
	CleanedText     string             `json:"cleaned_text"`
	Summary         string             `json:"summary"`
	Keywords        []Keyword          `json:"keywords"`
	Entities        []Entity           `json:"entities"`
	Topics          []string           `json:"topics"`
	Categories      []string           `json:"categories"`
	Tags            []string           `json:"tags"`
	Sentiment       Sentiment          `json:"sentiment"`
	ImportanceScore float64            `json:"importance_score"`
	QualityScore    float64            `json:"quality_score"`
	SourceAuthority float64            `json:"source_authority"`
	Source          string             `json:"source"`
	Author          string             `json:"author,omitempty"`
	PublishTime     *time.Time         `json:"publish_time,omitempty"`
	URL             string             `json:"url"`
	ExtractedLinks  []string           `json:"extracted_links"`
	Engagement      *EngagementMetrics `json:"engagement_metrics,omitempty"`
	Language        string             `json:"language,omitempty"`
	ProcessingTime  time.Time          `json:"processing_time"`
}

// ReferenceTime returns the publish time, falling back to the processing time.
func (c *ProcessedContent) ReferenceTime() (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	if c.PublishTime != nil && !c.PublishTime.IsZero() {
		return *c.PublishTime, true
	}
	if !c.ProcessingTime.IsZero() {
		return c.ProcessingTime, true
	}
	return time.Time{}, false
}
