// Package aggregate holds pure transformations over a corpus of processed content. None of the
// functions mutate their input: they return new slices holding the same pointers.
package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"ContentDigest/internal/domain"
)

// Keys used when a document lacks the grouped attribute.
const (
	UncategorizedKey = "uncategorized"
	UnknownSourceKey = "unknown"
	UnknownDateKey   = "unknown"
)

const dateKeyLayout = "2006-01-02"

// Group is one bucket of a grouping, in the grouping's iteration order.
type Group struct {
	Key   string                     `json:"key"`
	Items []*domain.ProcessedContent `json:"items"`
}

// DateRange spans the reference times of a corpus.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Statistics summarizes a corpus. An empty corpus yields zero counts, empty maps and a nil
// DateRange.
type Statistics struct {
	TotalCount            int            `json:"total_count"`
	AvgImportanceScore    float64        `json:"avg_importance_score"`
	Categories            map[string]int `json:"categories"`
	Sources               map[string]int `json:"sources"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	DateRange             *DateRange     `json:"date_range"`
}

// FilterByTimeRange keeps documents whose reference time lies within [start, end]. Publish time
// is used when present, processing time otherwise; documents with neither are dropped.
func FilterByTimeRange(corpus []*domain.ProcessedContent, start, end time.Time) []*domain.ProcessedContent {
	start, end = start.UTC(), end.UTC()
	out := make([]*domain.ProcessedContent, 0, len(corpus))
	for _, c := range corpus {
		if c == nil {
			continue
		}
		at, ok := c.ReferenceTime()
		if !ok {
			continue
		}
		at = at.UTC()
		if at.Before(start) || at.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// GroupByCategory places each document under every one of its categories. Groups keep the order
// in which categories first appear.
func GroupByCategory(corpus []*domain.ProcessedContent) []Group {
	b := newGrouper()
	for _, c := range corpus {
		if c == nil {
			continue
		}
		if len(c.Categories) == 0 {
			b.add(UncategorizedKey, c)
			continue
		}
		for _, category := range c.Categories {
			b.add(category, c)
		}
	}
	return b.groups(false)
}

// GroupBySource buckets documents by source name.
func GroupBySource(corpus []*domain.ProcessedContent) []Group {
	b := newGrouper()
	for _, c := range corpus {
		if c == nil {
			continue
		}
		source := c.Source
		if source == "" {
			source = UnknownSourceKey
		}
		b.add(source, c)
	}
	return b.groups(false)
}

// GroupByKeyword buckets documents under each keyword scoring at least minScore. Larger groups
// come first.
func GroupByKeyword(corpus []*domain.ProcessedContent, minScore float64) []Group {
	b := newGrouper()
	for _, c := range corpus {
		if c == nil {
			continue
		}
		for _, kw := range c.Keywords {
			if kw.Score >= minScore {
				b.add(kw.Term, c)
			}
		}
	}
	return b.groups(true)
}

// GroupByEntity buckets documents under each entity text. An empty label matches every entity.
func GroupByEntity(corpus []*domain.ProcessedContent, label domain.EntityLabel) []Group {
	b := newGrouper()
	for _, c := range corpus {
		if c == nil {
			continue
		}
		for _, e := range c.Entities {
			if label == "" || e.Label == label {
				b.add(e.Text, c)
			}
		}
	}
	return b.groups(true)
}

// GroupByDate buckets documents by the UTC calendar day of their reference time, newest day
// first. Documents without any time go last under UnknownDateKey.
func GroupByDate(corpus []*domain.ProcessedContent) []Group {
	b := newGrouper()
	for _, c := range corpus {
		if c == nil {
			continue
		}
		key := UnknownDateKey
		if at, ok := c.ReferenceTime(); ok {
			key = at.UTC().Format(dateKeyLayout)
		}
		b.add(key, c)
	}

	groups := b.groups(false)
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Key == UnknownDateKey || groups[j].Key == UnknownDateKey {
			return groups[j].Key == UnknownDateKey && groups[i].Key != UnknownDateKey
		}
		return groups[i].Key > groups[j].Key
	})
	return groups
}

// SortByImportance returns a copy ordered by descending importance. Ties keep input order.
func SortByImportance(corpus []*domain.ProcessedContent) []*domain.ProcessedContent {
	out := clone(corpus)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	return out
}

// SortByTime returns a copy ordered by reference time. Documents without a time sort as the
// earliest. Ties keep input order in both directions.
func SortByTime(corpus []*domain.ProcessedContent, ascending bool) []*domain.ProcessedContent {
	out := clone(corpus)
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := out[i].ReferenceTime()
		tj, _ := out[j].ReferenceTime()
		if ascending {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
	return out
}

// LimitItems truncates to at most n documents in current order. A non-positive n returns an
// empty slice.
func LimitItems(corpus []*domain.ProcessedContent, n int) []*domain.ProcessedContent {
	if n <= 0 {
		return []*domain.ProcessedContent{}
	}
	if n > len(corpus) {
		n = len(corpus)
	}
	return clone(corpus[:n])
}

// DeduplicateByTitle keeps the first document for each trimmed, case-insensitive title.
func DeduplicateByTitle(corpus []*domain.ProcessedContent) []*domain.ProcessedContent {
	seen := make(map[string]struct{}, len(corpus))
	out := make([]*domain.ProcessedContent, 0, len(corpus))
	for _, c := range corpus {
		if c == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(c.Title))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// FilterByKeywords keeps documents where any of the given words matches a keyword term or tag
// exactly, or appears in the title. Matching ignores case. No words keeps everything.
func FilterByKeywords(corpus []*domain.ProcessedContent, words []string) []*domain.ProcessedContent {
	wanted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			wanted = append(wanted, w)
		}
	}
	if len(wanted) == 0 {
		return clone(corpus)
	}

	out := make([]*domain.ProcessedContent, 0, len(corpus))
	for _, c := range corpus {
		if c != nil && mentionsAny(c, wanted) {
			out = append(out, c)
		}
	}
	return out
}

func mentionsAny(c *domain.ProcessedContent, wanted []string) bool {
	terms := make(map[string]struct{}, len(c.Keywords)+len(c.Tags))
	for _, kw := range c.Keywords {
		terms[strings.ToLower(kw.Term)] = struct{}{}
	}
	for _, tag := range c.Tags {
		terms[strings.ToLower(tag)] = struct{}{}
	}
	title := strings.ToLower(c.Title)

	for _, w := range wanted {
		if _, ok := terms[w]; ok {
			return true
		}
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}

// CalculateStatistics counts categories, sources and sentiment labels and spans the reference
// times of corpus.
func CalculateStatistics(corpus []*domain.ProcessedContent) Statistics {
	stats := Statistics{
		Categories:            map[string]int{},
		Sources:               map[string]int{},
		SentimentDistribution: map[string]int{},
	}

	var (
		total      float64
		start, end time.Time
		haveTime   bool
	)
	for _, c := range corpus {
		if c == nil {
			continue
		}
		stats.TotalCount++
		total += c.ImportanceScore

		for _, category := range c.Categories {
			stats.Categories[category]++
		}

		source := c.Source
		if source == "" {
			source = UnknownSourceKey
		}
		stats.Sources[source]++

		label := string(c.Sentiment.Label)
		if label == "" {
			label = string(domain.SentimentNeutral)
		}
		stats.SentimentDistribution[label]++

		if at, ok := c.ReferenceTime(); ok {
			at = at.UTC()
			if !haveTime || at.Before(start) {
				start = at
			}
			if !haveTime || at.After(end) {
				end = at
			}
			haveTime = true
		}
	}

	if stats.TotalCount > 0 {
		stats.AvgImportanceScore = math.Round(total/float64(stats.TotalCount)*1000) / 1000
	}
	if haveTime {
		stats.DateRange = &DateRange{
			Start: start,
			End:   end,
			Days:  int(end.Sub(start)/(24*time.Hour)) + 1,
		}
	}
	return stats
}

// clone copies corpus without its nil entries.
func clone(corpus []*domain.ProcessedContent) []*domain.ProcessedContent {
	out := make([]*domain.ProcessedContent, 0, len(corpus))
	for _, c := range corpus {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// grouper collects multi-membership buckets, adding a document at most once per key.
type grouper struct {
	order   []string
	buckets map[string][]*domain.ProcessedContent
	members map[string]map[*domain.ProcessedContent]struct{}
}

func newGrouper() *grouper {
	return &grouper{
		buckets: map[string][]*domain.ProcessedContent{},
		members: map[string]map[*domain.ProcessedContent]struct{}{},
	}
}

func (g *grouper) add(key string, c *domain.ProcessedContent) {
	set, ok := g.members[key]
	if !ok {
		set = map[*domain.ProcessedContent]struct{}{}
		g.members[key] = set
		g.order = append(g.order, key)
	}
	if _, dup := set[c]; dup {
		return
	}
	set[c] = struct{}{}
	g.buckets[key] = append(g.buckets[key], c)
}

// groups returns buckets in first-appearance order, or by descending size when bySize is set.
// Items in every bucket are ordered by importance.
func (g *grouper) groups(bySize bool) []Group {
	out := make([]Group, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, Group{Key: key, Items: SortByImportance(g.buckets[key])})
	}
	if bySize {
		sort.SliceStable(out, func(i, j int) bool {
			return len(out[i].Items) > len(out[j].Items)
		})
	}
	return out
}
