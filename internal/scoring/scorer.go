package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"ContentDigest/internal/domain"
	"ContentDigest/internal/ports"
)

const (
	neutralScore          = 0.5
	missingPublishScore   = 0.3
	relevanceKeywordStep  = 0.1
	relevanceKeywordCap   = 0.3
	relevanceCategoryBump = 0.2
	noveltyStep           = 0.1
	orgBoostThreshold     = 3
	orgBoost              = 1.1
	qualityBoostThreshold = 0.8
	qualityBoost          = 1.05
)

var timelinessSteps = []struct {
	maxAge time.Duration
	score  float64
}{
	{time.Hour, 1.0},
	{6 * time.Hour, 0.9},
	{24 * time.Hour, 0.8},
	{3 * 24 * time.Hour, 0.6},
	{7 * 24 * time.Hour, 0.4},
	{30 * 24 * time.Hour, 0.2},
}

type weightedTerm struct {
	term   string
	weight float64
}

// Breakdown shows how each factor contributed to the final score.
type Breakdown struct {
	Timeliness float64
	Authority  float64
	Relevance  float64
	Engagement float64
	Quality    float64
	Uniqueness float64
	Weighted   float64
	Boost      float64
	Final      float64
}

// Scorer computes bounded importance scores. It holds only immutable tables and is safe for
// concurrent use.
type Scorer struct {
	weights      Weights
	authorities  []weightedTerm
	important    []weightedTerm
	aiKeywords   []string
	aiCategories map[string]struct{}
	novelty      []string
	now          func() time.Time
	logger       *slog.Logger
}

var _ ports.ImportanceScorer = (*Scorer)(nil)

// Option customizes a Scorer.
type Option func(*Scorer)

// WithClock overrides the time source used for timeliness.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scorer) {
		if log != nil {
			s.logger = log.With("component", "scorer")
		}
	}
}

// New validates the configuration and builds a scorer.
func New(cfg Config, opts ...Option) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	for source, score := range cfg.AuthoritySources {
		if score < 0 || score > 1 || math.IsNaN(score) {
			return nil, fmt.Errorf("authority score for %q out of range: %v", source, score)
		}
	}

	s := &Scorer{
		weights:      cfg.Weights,
		authorities:  sortedTerms(cfg.AuthoritySources),
		important:    sortedTerms(cfg.ImportantKeywords),
		aiKeywords:   lowerAll(cfg.AIKeywords),
		aiCategories: make(map[string]struct{}, len(cfg.AICategories)),
		novelty:      lowerAll(cfg.NoveltyTerms),
		now:          time.Now,
	}
	for _, c := range cfg.AICategories {
		s.aiCategories[c] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CalculateImportance returns the final score in [0,1], or 0.5 when it cannot be computed.
func (s *Scorer) CalculateImportance(content *domain.ProcessedContent) float64 {
	return s.Breakdown(content).Final
}

// Breakdown computes every factor, the weighted sum, the boost and the clamped final score.
func (s *Scorer) Breakdown(content *domain.ProcessedContent) (b Breakdown) {
	if content == nil {
		return Breakdown{Final: neutralScore, Boost: 1}
	}
	defer func() {
		if r := recover(); r != nil {
			s.warn("importance scoring failed", "content_id", content.ContentID, "error", r)
			b = Breakdown{Final: neutralScore, Boost: 1}
		}
	}()

	b.Timeliness = s.timeliness(content.PublishTime)
	b.Authority = s.authority(content.Source, content.SourceAuthority)
	b.Relevance = s.relevance(content.Keywords, content.Categories)
	b.Engagement = engagement(content.Engagement)
	b.Quality = clamp01(content.QualityScore)
	b.Uniqueness = s.uniqueness(content.Keywords)

	b.Weighted = b.Timeliness*s.weights.Timeliness +
		b.Authority*s.weights.Authority +
		b.Relevance*s.weights.Relevance +
		b.Engagement*s.weights.Engagement +
		b.Quality*s.weights.Quality +
		b.Uniqueness*s.weights.Uniqueness
	b.Boost = s.boost(content)

	final := b.Weighted * b.Boost
	if math.IsNaN(final) || math.IsInf(final, 0) {
		s.warn("importance score not finite", "content_id", content.ContentID)
		b.Final = neutralScore
		return b
	}
	b.Final = clamp01(final)
	return b
}

func (s *Scorer) timeliness(publish *time.Time) float64 {
	if publish == nil || publish.IsZero() {
		return missingPublishScore
	}
	age := s.now().UTC().Sub(publish.UTC())
	for _, step := range timelinessSteps {
		if age < step.maxAge {
			return step.score
		}
	}
	return 0.1
}

func (s *Scorer) authority(source string, base float64) float64 {
	fallback := base
	if fallback <= 0 {
		fallback = neutralScore
	}
	if source == "" {
		return clamp01(fallback)
	}

	lower := strings.ToLower(source)
	best, matched := 0.0, false
	for _, a := range s.authorities {
		if strings.Contains(lower, a.term) && a.weight > best {
			best, matched = a.weight, true
		}
	}
	if !matched {
		return clamp01(fallback)
	}
	return clamp01(math.Max(best, base))
}

func (s *Scorer) relevance(keywords []domain.Keyword, categories []string) float64 {
	score := neutralScore

	hits := 0
	for _, kw := range keywords {
		if containsAny(strings.ToLower(kw.Term), s.aiKeywords) {
			hits++
		}
	}
	score += math.Min(relevanceKeywordCap, float64(hits)*relevanceKeywordStep)

	for _, c := range categories {
		if _, ok := s.aiCategories[c]; ok {
			score += relevanceCategoryBump
			break
		}
	}
	return math.Min(1, score)
}

func engagement(m *domain.EngagementMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	norm := func(v int64, denom float64) float64 {
		return math.Log10(math.Max(1, float64(v))) / denom
	}
	score := norm(m.Views, 6)*0.2 +
		norm(m.Shares, 4)*0.3 +
		norm(m.Comments, 3)*0.3 +
		norm(m.Likes, 5)*0.2
	return clamp01(score)
}

func (s *Scorer) uniqueness(keywords []domain.Keyword) float64 {
	if len(keywords) == 0 {
		return neutralScore
	}
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, strings.ToLower(kw.Term))
	}

	score := neutralScore
	for _, novel := range s.novelty {
		for _, term := range terms {
			if strings.Contains(term, novel) {
				score += noveltyStep
				break
			}
		}
	}
	return math.Min(1, score)
}

// boost takes the best title keyword match, then multiplies in the entity and quality bonuses.
func (s *Scorer) boost(content *domain.ProcessedContent) float64 {
	boost := 1.0
	if content.Title != "" {
		title := strings.ToLower(content.Title)
		for _, kw := range s.important {
			if strings.Contains(title, kw.term) {
				boost = math.Max(boost, 1+(kw.weight-1)*0.5)
			}
		}
	}

	orgs := 0
	for _, e := range content.Entities {
		if e.Label == domain.EntityOrg {
			orgs++
		}
	}
	if orgs >= orgBoostThreshold {
		boost *= orgBoost
	}
	if content.QualityScore > qualityBoostThreshold {
		boost *= qualityBoost
	}
	return boost
}

func (s *Scorer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func sortedTerms(table map[string]float64) []weightedTerm {
	terms := make([]weightedTerm, 0, len(table))
	for term, weight := range table {
		terms = append(terms, weightedTerm{term: strings.ToLower(term), weight: weight})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].term < terms[j].term })
	return terms
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
