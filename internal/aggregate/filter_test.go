package aggregate

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ContentDigest/internal/domain"
)

func TestApplyFiltersGTEExactSubset(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	var corpus []*domain.ProcessedContent
	for i := 0; i < 200; i++ {
		corpus = append(corpus, item(fmt.Sprint(i), rng.Float64(), base))
	}
	corpus = append(corpus, item("edge", 0.7, base))

	got := ApplyFilters(corpus, FilterSpec{"importance_score": map[string]any{"$gte": 0.7}})

	var want []string
	for _, c := range corpus {
		if c.ImportanceScore >= 0.7 {
			want = append(want, c.ContentID)
		}
	}
	assert.Equal(t, want, ids(got))
	assert.Contains(t, ids(got), "edge")
}

func TestApplyFiltersOperatorsAreANDed(t *testing.T) {
	t.Parallel()

	corpus := []*domain.ProcessedContent{item("low", 0.2, base), item("mid", 0.5, base), item("high", 0.9, base)}

	got := ApplyFilters(corpus, FilterSpec{"importance_score": map[string]any{"$gte": 0.3, "$lte": 0.8}})

	assert.Equal(t, []string{"mid"}, ids(got))
}

func TestApplyFiltersListIntersectionAndIn(t *testing.T) {
	t.Parallel()

	a := item("a", 0.1, base)
	a.Categories = []string{"Research"}
	a.Source = "arXiv"
	b := item("b", 0.2, base)
	b.Categories = []string{"Product", "Technology"}
	b.Source = "OpenAI"
	c := item("c", 0.3, base)
	c.Source = "Wired"

	corpus := []*domain.ProcessedContent{a, b, c}

	assert.Equal(t, []string{"a", "b"}, ids(ApplyFilters(corpus, FilterSpec{"categories": []any{"Research", "Technology"}})))
	assert.Equal(t, []string{"b", "c"}, ids(ApplyFilters(corpus, FilterSpec{"source": map[string]any{"$in": []any{"OpenAI", "Wired"}}})))
	assert.Empty(t, ApplyFilters(corpus, FilterSpec{"categories": map[string]any{"$in": []any{"Research"}}}))
}

func TestApplyFiltersNestedPaths(t *testing.T) {
	t.Parallel()

	a := item("a", 0.1, base)
	a.Sentiment = domain.Sentiment{Label: domain.SentimentPositive}
	a.Engagement = &domain.EngagementMetrics{Views: 5000}
	a.Entities = []domain.Entity{{Text: "OpenAI", Label: domain.EntityOrg}}
	b := item("b", 0.2, base)
	b.Sentiment = domain.Sentiment{Label: domain.SentimentNegative}

	corpus := []*domain.ProcessedContent{a, b}

	assert.Equal(t, []string{"a"}, ids(ApplyFilters(corpus, FilterSpec{"sentiment.label": "positive"})))
	assert.Equal(t, []string{"a"}, ids(ApplyFilters(corpus, FilterSpec{"engagement_metrics.views": map[string]any{"$gte": 1000}})))
	assert.Equal(t, []string{"a"}, ids(ApplyFilters(corpus, FilterSpec{"entities.label": []string{"ORG"}})))
}

func TestApplyFiltersFailClosed(t *testing.T) {
	t.Parallel()

	corpus := []*domain.ProcessedContent{item("a", 0.9, base)}

	assert.Empty(t, ApplyFilters(corpus, FilterSpec{"no_such_field": "x"}))
	assert.Empty(t, ApplyFilters(corpus, FilterSpec{"importance_score": "high"}))
	assert.Empty(t, ApplyFilters(corpus, FilterSpec{"importance_score": map[string]any{"$ne": 0.1}}))
	assert.Empty(t, ApplyFilters(corpus, FilterSpec{"title": []any{"Title a"}}))
	assert.Empty(t, ApplyFilters(corpus, FilterSpec{"engagement_metrics.views": map[string]any{"$gte": 0}}))
}

func TestApplyFiltersTimesAndDecodedJSON(t *testing.T) {
	t.Parallel()

	older := item("older", 0.9, base.Add(-48*time.Hour))
	newer := item("newer", 0.8, base)

	var spec FilterSpec
	require.NoError(t, json.Unmarshal([]byte(`{"publish_time":{"$gte":"2025-11-07T00:00:00Z"},"importance_score":{"$gte":0.5}}`), &spec))

	assert.Equal(t, []string{"newer"}, ids(ApplyFilters([]*domain.ProcessedContent{older, newer}, spec)))
}

func TestApplyFiltersEmptySpecKeepsAll(t *testing.T) {
	t.Parallel()

	corpus := []*domain.ProcessedContent{item("a", 0.1, base), item("b", 0.2, base)}

	assert.Equal(t, []string{"a", "b"}, ids(ApplyFilters(corpus, nil)))
}

func TestApplyFiltersYAMLDecodedSpec(t *testing.T) {
	t.Parallel()

	var section struct {
		Filters FilterSpec `yaml:"filters"`
	}
	raw := `
filters:
  importance_score:
    $gte: 0.8
  categories: [Research]
`
	require.NoError(t, yaml.Unmarshal([]byte(raw), &section))
	require.IsType(t, map[string]any{}, section.Filters["importance_score"])

	high := item("high", 0.95, base)
	high.Categories = []string{"Research"}
	low := item("low", 0.1, base)
	low.Categories = []string{"Research"}

	assert.Equal(t, []string{"high"}, ids(ApplyFilters([]*domain.ProcessedContent{high, low}, section.Filters)))
}

func TestApplyFiltersNestedFilterSpecCondition(t *testing.T) {
	t.Parallel()

	corpus := []*domain.ProcessedContent{item("a", 0.9, base), item("b", 0.2, base)}
	spec := FilterSpec{"importance_score": FilterSpec{"$gte": 0.5}}

	assert.Equal(t, []string{"a"}, ids(ApplyFilters(corpus, spec)))
}
