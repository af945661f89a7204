// Package report shapes aggregated content into section payloads and assembles reports. The
// payloads are plain data; rendering them to text is left to the caller.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"ContentDigest/internal/aggregate"
	"ContentDigest/internal/domain"
	"ContentDigest/internal/metrics"
	"ContentDigest/internal/ports"
)

// FallbackSummary replaces generated text when the summarizer fails or times out.
const FallbackSummary = "summary unavailable"

const (
	defaultSummaryTimeout = 20 * time.Second
	summaryMaxLength      = 500
	summaryInputLimit     = 10
	itemSummaryRunes      = 200
	itemTagLimit          = 5
	groupedListLimit      = 10
	trendLimit            = 10
	insightTopicLimit     = 5
	topNewsLimit          = 3
	topCategoryLimit      = 3
	trendKeywordMinScore  = 0.5
)

// BuilderOptions configures a Builder. Every field is optional.
type BuilderOptions struct {
	Summarizer     ports.Summarizer
	SummaryTimeout time.Duration
	Logger         *slog.Logger
	Clock          func() time.Time
}

// Builder turns a scored corpus into section payloads and reports.
type Builder struct {
	summarizer ports.Summarizer
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewBuilder applies defaults to opts.
func NewBuilder(opts BuilderOptions) *Builder {
	b := &Builder{
		summarizer: opts.Summarizer,
		timeout:    opts.SummaryTimeout,
		now:        opts.Clock,
	}
	if b.timeout <= 0 {
		b.timeout = defaultSummaryTimeout
	}
	if b.now == nil {
		b.now = time.Now
	}
	if opts.Logger != nil {
		b.logger = opts.Logger.With("component", "report")
	}
	return b
}

// Section is one shaped section. Content holds the kind-specific payload.
type Section struct {
	ID      string      `json:"section_id"`
	Name    string      `json:"section_name"`
	Kind    SectionKind `json:"section_type"`
	Order   int         `json:"order"`
	Content any         `json:"content"`
}

// Item is the flat view of one document inside a list payload.
type Item struct {
	Title           string     `json:"title"`
	Summary         string     `json:"summary"`
	Source          string     `json:"source"`
	Author          string     `json:"author,omitempty"`
	PublishTime     *time.Time `json:"publish_time"`
	URL             string     `json:"url"`
	ImportanceScore float64    `json:"importance_score"`
	Tags            []string   `json:"tags"`
}

// NamedGroup is a titled list of items.
type NamedGroup struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// NewsList is the news_list payload. Unknown section kinds reuse it with no items.
type NewsList struct {
	Type  SectionKind `json:"type"`
	Items []Item      `json:"items"`
	Count int         `json:"count"`
}

// CategorizedList is the categorized_list payload.
type CategorizedList struct {
	Type       SectionKind  `json:"type"`
	Categories []NamedGroup `json:"categories"`
	TotalCount int          `json:"total_count"`
}

// GroupedList is the grouped_list payload: items grouped by organization.
type GroupedList struct {
	Type       SectionKind  `json:"type"`
	Groups     []NamedGroup `json:"groups"`
	TotalCount int          `json:"total_count"`
}

// SummaryText is the summary payload.
type SummaryText struct {
	Type SectionKind `json:"type"`
	Text string      `json:"text"`
}

// ExecutiveSummary is the executive_summary payload.
type ExecutiveSummary struct {
	Type       SectionKind          `json:"type"`
	Summary    string               `json:"summary"`
	KeyPoints  []string             `json:"key_points"`
	Statistics aggregate.Statistics `json:"statistics"`
}

// Trend is one keyword of a trend analysis. Direction compares the newer half of the
// section's time span with the older half.
type Trend struct {
	Keyword   string `json:"keyword"`
	Count     int    `json:"count"`
	Direction string `json:"trend"`
}

// TrendAnalysis is the trend_analysis payload.
type TrendAnalysis struct {
	Type     SectionKind `json:"type"`
	Trends   []Trend     `json:"trends"`
	Analysis string      `json:"analysis"`
}

// TopicCount is a keyword topic with its document count.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Insights is the insights payload.
type Insights struct {
	Type                  SectionKind    `json:"type"`
	Analysis              string         `json:"trend_analysis"`
	KeyTopics             []TopicCount   `json:"key_topics"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
}

// InvestmentItem lists the organizations named by one document.
type InvestmentItem struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Companies []string `json:"companies"`
	URL       string   `json:"url"`
}

// InvestmentSummary is the investment_summary payload.
type InvestmentSummary struct {
	Type       SectionKind      `json:"type"`
	Items      []InvestmentItem `json:"items"`
	TotalDeals int              `json:"total_deals"`
}

// Trend directions.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendSteady  = "steady"
)

// BuildSection applies the section filters, limits the result and shapes it by kind. Apart
// from summarizer output the payload is a pure function of spec and corpus.
func (b *Builder) BuildSection(ctx context.Context, spec SectionSpec, corpus []*domain.ProcessedContent) Section {
	contents := aggregate.ApplyFilters(corpus, spec.Filters)
	if spec.MaxItems > 0 {
		contents = aggregate.LimitItems(contents, spec.MaxItems)
	}

	section := Section{ID: spec.ID, Name: spec.Name, Kind: spec.Kind, Order: spec.Order}
	switch spec.Kind {
	case KindNewsList:
		section.Content = newsList(contents)
	case KindCategorizedList:
		section.Content = categorizedList(contents)
	case KindGroupedList:
		section.Content = groupedList(contents)
	case KindSummary:
		section.Content = b.sectionSummary(ctx, contents)
	case KindExecutiveSummary:
		section.Content = executiveSummary(contents)
	case KindTrendAnalysis:
		section.Content = trendAnalysis(contents)
	case KindInsights:
		section.Content = insights(contents)
	case KindInvestmentSummary:
		section.Content = investmentSummary(contents)
	default:
		b.debug("unknown section kind", "section", spec.ID, "kind", spec.Kind)
		section.Content = NewsList{Type: spec.Kind, Items: []Item{}}
	}
	return section
}

func newsList(contents []*domain.ProcessedContent) NewsList {
	items := toItems(contents)
	return NewsList{Type: KindNewsList, Items: items, Count: len(items)}
}

func toItems(contents []*domain.ProcessedContent) []Item {
	items := make([]Item, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		summary := c.Summary
		if summary == "" {
			summary = truncateRunes(c.CleanedText, itemSummaryRunes) + "..."
		}
		tags := c.Tags
		if len(tags) > itemTagLimit {
			tags = tags[:itemTagLimit]
		}
		if tags == nil {
			tags = []string{}
		}
		var published *time.Time
		if c.PublishTime != nil {
			at := c.PublishTime.UTC()
			published = &at
		}
		items = append(items, Item{
			Title:           c.Title,
			Summary:         summary,
			Source:          c.Source,
			Author:          c.Author,
			PublishTime:     published,
			URL:             c.URL,
			ImportanceScore: c.ImportanceScore,
			Tags:            tags,
		})
	}
	return items
}

func namedGroups(groups []aggregate.Group) []NamedGroup {
	out := make([]NamedGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, NamedGroup{Name: g.Key, Items: toItems(g.Items), Count: len(g.Items)})
	}
	return out
}

func categorizedList(contents []*domain.ProcessedContent) CategorizedList {
	return CategorizedList{
		Type:       KindCategorizedList,
		Categories: namedGroups(aggregate.GroupByCategory(contents)),
		TotalCount: len(contents),
	}
}

func groupedList(contents []*domain.ProcessedContent) GroupedList {
	groups := aggregate.GroupByEntity(contents, domain.EntityOrg)
	if len(groups) > groupedListLimit {
		groups = groups[:groupedListLimit]
	}
	return GroupedList{Type: KindGroupedList, Groups: namedGroups(groups), TotalCount: len(contents)}
}

func (b *Builder) sectionSummary(ctx context.Context, contents []*domain.ProcessedContent) SummaryText {
	if len(contents) == 0 {
		return SummaryText{Type: KindSummary, Text: "No content in this section."}
	}
	text := fmt.Sprintf("This section covers %d items.", len(contents))
	if generated, ok := b.summarize(ctx, contents); ok {
		text = generated
	}
	return SummaryText{Type: KindSummary, Text: text}
}

func executiveSummary(contents []*domain.ProcessedContent) ExecutiveSummary {
	stats := aggregate.CalculateStatistics(contents)

	points := []string{}
	top := aggregate.LimitItems(aggregate.SortByImportance(contents), topNewsLimit)
	for _, c := range top {
		points = append(points, "• "+c.Title)
	}
	if categories := topCounts(stats.Categories, topCategoryLimit); len(categories) > 0 {
		parts := make([]string, len(categories))
		for i, c := range categories {
			parts[i] = fmt.Sprintf("%s (%d)", c.name, c.count)
		}
		points = append(points, "• Main areas: "+strings.Join(parts, ", "))
	}

	return ExecutiveSummary{
		Type: KindExecutiveSummary,
		Summary: fmt.Sprintf("This report covers %d notable AI items with an average importance score of %.3f.",
			stats.TotalCount, stats.AvgImportanceScore),
		KeyPoints:  points,
		Statistics: stats,
	}
}

func trendAnalysis(contents []*domain.ProcessedContent) TrendAnalysis {
	groups := aggregate.GroupByKeyword(contents, trendKeywordMinScore)
	if len(groups) > trendLimit {
		groups = groups[:trendLimit]
	}

	midpoint, spanned := timeMidpoint(contents)
	trends := make([]Trend, 0, len(groups))
	for _, g := range groups {
		direction := TrendSteady
		if spanned {
			direction = trendDirection(g.Items, midpoint)
		}
		trends = append(trends, Trend{Keyword: g.Key, Count: len(g.Items), Direction: direction})
	}

	analysis := "No recurring keywords in this period."
	if len(trends) > 0 {
		analysis = "Keyword analysis of this period shows the topics above drew the most attention."
	}
	return TrendAnalysis{Type: KindTrendAnalysis, Trends: trends, Analysis: analysis}
}

func timeMidpoint(contents []*domain.ProcessedContent) (time.Time, bool) {
	stats := aggregate.CalculateStatistics(contents)
	if stats.DateRange == nil || !stats.DateRange.End.After(stats.DateRange.Start) {
		return time.Time{}, false
	}
	span := stats.DateRange.End.Sub(stats.DateRange.Start)
	return stats.DateRange.Start.Add(span / 2), true
}

func trendDirection(items []*domain.ProcessedContent, midpoint time.Time) string {
	var older, newer int
	for _, c := range items {
		at, ok := c.ReferenceTime()
		if !ok {
			continue
		}
		if at.After(midpoint) {
			newer++
		} else {
			older++
		}
	}
	switch {
	case newer > older:
		return TrendRising
	case newer < older:
		return TrendFalling
	}
	return TrendSteady
}

func insights(contents []*domain.ProcessedContent) Insights {
	groups := aggregate.GroupByKeyword(contents, trendKeywordMinScore)
	if len(groups) > insightTopicLimit {
		groups = groups[:insightTopicLimit]
	}
	topics := make([]TopicCount, 0, len(groups))
	for _, g := range groups {
		topics = append(topics, TopicCount{Topic: g.Key, Count: len(g.Items)})
	}

	return Insights{
		Type:                  KindInsights,
		Analysis:              fmt.Sprintf("Based on %d items collected in this period.", len(contents)),
		KeyTopics:             topics,
		SentimentDistribution: aggregate.CalculateStatistics(contents).SentimentDistribution,
	}
}

func investmentSummary(contents []*domain.ProcessedContent) InvestmentSummary {
	items := make([]InvestmentItem, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		companies := []string{}
		for _, e := range c.Entities {
			if e.Label == domain.EntityOrg {
				companies = append(companies, e.Text)
			}
		}
		items = append(items, InvestmentItem{Title: c.Title, Summary: c.Summary, Companies: companies, URL: c.URL})
	}
	return InvestmentSummary{Type: KindInvestmentSummary, Items: items, TotalDeals: len(items)}
}

// summarize asks the summarizer for text under the configured timeout. The bool is false when
// no summarizer is configured; failures and timeouts return FallbackSummary.
func (b *Builder) summarize(ctx context.Context, contents []*domain.ProcessedContent) (string, bool) {
	if b.summarizer == nil {
		metrics.ObserveSummarizer("absent")
		return "", false
	}
	if len(contents) > summaryInputLimit {
		contents = contents[:summaryInputLimit]
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := b.summarizer.Summarize(ctx, contents, summaryMaxLength)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil || strings.TrimSpace(r.text) == "" {
			status := "error"
			if errors.Is(r.err, context.DeadlineExceeded) {
				status = "timeout"
			}
			metrics.ObserveSummarizer(status)
			b.warn("summarizer failed, using fallback", "error", r.err)
			return FallbackSummary, true
		}
		metrics.ObserveSummarizer("ok")
		return strings.TrimSpace(r.text), true
	case <-ctx.Done():
		metrics.ObserveSummarizer("timeout")
		b.warn("summarizer timed out, using fallback", "timeout", b.timeout)
		return FallbackSummary, true
	}
}

type nameCount struct {
	name  string
	count int
}

// topCounts orders counts descending, breaking ties by name.
func topCounts(counts map[string]int, limit int) []nameCount {
	out := make([]nameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, nameCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (b *Builder) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Builder) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
