package aggregate

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ContentDigest/internal/domain"
)

// Filter operators.
const (
	OpGTE = "$gte"
	OpLTE = "$lte"
	OpIn  = "$in"
)

// FilterSpec maps a dotted snake_case field path to a condition. A condition is one of:
//   - a scalar: equality
//   - a list: the field is itself a list and must share at least one value
//   - an operator map ($gte, $lte, $in): every operator must hold
//
// Every field must match. A missing field, an unknown operator or a type mismatch excludes the
// document.
type FilterSpec map[string]any

// UnmarshalYAML decodes through a plain map so nested operator maps stay map[string]any instead of
// taking the FilterSpec type.
func (f *FilterSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*f = FilterSpec(raw)
	return nil
}

// ApplyFilters returns the documents matching every condition of spec, in input order.
func ApplyFilters(corpus []*domain.ProcessedContent, spec FilterSpec) []*domain.ProcessedContent {
	if len(spec) == 0 {
		return clone(corpus)
	}

	fields := make([]string, 0, len(spec))
	for field := range spec {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]*domain.ProcessedContent, 0, len(corpus))
	for _, c := range corpus {
		if c != nil && matchesAll(c, spec, fields) {
			out = append(out, c)
		}
	}
	return out
}

func matchesAll(c *domain.ProcessedContent, spec FilterSpec, fields []string) bool {
	for _, field := range fields {
		value, ok := fieldValue(c, field)
		if !ok || !matches(value, spec[field]) {
			return false
		}
	}
	return true
}

func matches(value, condition any) bool {
	switch cond := condition.(type) {
	case FilterSpec:
		return matches(value, map[string]any(cond))
	case map[string]any:
		for op, operand := range cond {
			if !matchOperator(value, op, operand) {
				return false
			}
		}
		return true
	case []any, []string:
		list, ok := value.([]string)
		if !ok {
			return false
		}
		return intersects(list, toList(cond))
	default:
		cmp, ok := compare(value, cond)
		return ok && cmp == 0
	}
}

func matchOperator(value any, op string, operand any) bool {
	switch op {
	case OpGTE:
		cmp, ok := compare(value, operand)
		return ok && cmp >= 0
	case OpLTE:
		cmp, ok := compare(value, operand)
		return ok && cmp <= 0
	case OpIn:
		if _, isList := value.([]string); isList {
			return false
		}
		for _, candidate := range toList(operand) {
			if cmp, ok := compare(value, candidate); ok && cmp == 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// fieldValue resolves a dotted path to a string, float64, time.Time or []string.
func fieldValue(c *domain.ProcessedContent, path string) (any, bool) {
	switch path {
	case "content_id":
		return c.ContentID, true
	case "title":
		return c.Title, true
	case "summary":
		return c.Summary, true
	case "source":
		return c.Source, true
	case "author":
		return c.Author, true
	case "url":
		return c.URL, true
	case "language":
		return c.Language, true
	case "importance_score":
		return c.ImportanceScore, true
	case "quality_score":
		return c.QualityScore, true
	case "source_authority":
		return c.SourceAuthority, true
	case "categories":
		return c.Categories, true
	case "tags":
		return c.Tags, true
	case "topics":
		return c.Topics, true
	case "extracted_links":
		return c.ExtractedLinks, true
	case "keywords", "keywords.term":
		terms := make([]string, len(c.Keywords))
		for i, kw := range c.Keywords {
			terms[i] = kw.Term
		}
		return terms, true
	case "entities", "entities.text":
		texts := make([]string, len(c.Entities))
		for i, e := range c.Entities {
			texts[i] = e.Text
		}
		return texts, true
	case "entities.label":
		labels := make([]string, len(c.Entities))
		for i, e := range c.Entities {
			labels[i] = string(e.Label)
		}
		return labels, true
	case "sentiment.label":
		return string(c.Sentiment.Label), true
	case "sentiment.confidence":
		return c.Sentiment.Confidence, true
	case "publish_time":
		if c.PublishTime == nil {
			return nil, false
		}
		return *c.PublishTime, true
	case "processing_time":
		return c.ProcessingTime, true
	}

	if metric, ok := strings.CutPrefix(path, "engagement_metrics."); ok {
		if c.Engagement == nil {
			return nil, false
		}
		switch metric {
		case "views":
			return float64(c.Engagement.Views), true
		case "shares":
			return float64(c.Engagement.Shares), true
		case "comments":
			return float64(c.Engagement.Comments), true
		case "likes":
			return float64(c.Engagement.Likes), true
		}
	}
	return nil, false
}

// compare orders a resolved field value against an operand of a compatible type.
func compare(value, operand any) (int, bool) {
	switch v := value.(type) {
	case float64:
		o, ok := toFloat(operand)
		if !ok {
			return 0, false
		}
		switch {
		case v < o:
			return -1, true
		case v > o:
			return 1, true
		}
		return 0, true
	case string:
		o, ok := operand.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(v, o), true
	case time.Time:
		o, ok := toTime(operand)
		if !ok {
			return 0, false
		}
		return v.Compare(o), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func toList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	}
	return nil
}

func intersects(field []string, wanted []any) bool {
	for _, w := range wanted {
		s, ok := w.(string)
		if !ok {
			continue
		}
		for _, f := range field {
			if f == s {
				return true
			}
		}
	}
	return false
}
