package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSections(t *testing.T) {
	t.Parallel()

	sections, err := ParseSections([]byte(`[
		{"section_id": "top", "section_name": "Top stories", "section_type": "news_list", "order": 1, "max_items": 10,
		 "filters": {"importance_score": {"$gte": 0.7}, "categories": ["Research", "Product"]}},
		{"section_id": "exec", "section_type": "executive_summary"}
	]`))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "top", sections[0].ID)
	assert.Equal(t, KindNewsList, sections[0].Kind)
	assert.Equal(t, 10, sections[0].MaxItems)
	assert.Equal(t, map[string]any{"$gte": 0.7}, sections[0].Filters["importance_score"])
	assert.Equal(t, KindExecutiveSummary, sections[1].Kind)
}

func TestParseSectionsRejectsInvalidSpecs(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":            ``,
		"not array":        `{"section_id": "a", "section_type": "news_list"}`,
		"missing type":     `[{"section_id": "a"}]`,
		"negative limit":   `[{"section_id": "a", "section_type": "news_list", "max_items": -1}]`,
		"unknown operator": `[{"section_id": "a", "section_type": "news_list", "filters": {"importance_score": {"$ne": 1}}}]`,
		"bad field path":   `[{"section_id": "a", "section_type": "news_list", "filters": {"Importance Score": 1}}]`,
		"unknown property": `[{"section_id": "a", "section_type": "news_list", "template": "x"}]`,
		"trailing content": `[] []`,
	}
	for name, raw := range cases {
		_, err := ParseSections([]byte(raw))
		assert.True(t, errors.Is(err, ErrInvalidSpec), "%s: %v", name, err)
	}
}
