package usecase

import (
	"strings"

	"ContentDigest/internal/domain"
)

// Categories assigned during enrichment.
const (
	CategoryTechnology  = "Technology"
	CategoryApplication = "Application"
	CategoryResearch    = "Research"
	CategoryProduct     = "Product"
	CategoryInvestment  = "Investment"
	CategoryIndustry    = "Industry"
)

const (
	summaryRunes      = 200
	summaryMinCut     = 100
	tagKeywordLimit   = 5
	tagKeywordMinimum = 0.5
)

var (
	positiveWords = []string{"突破", "创新", "成功", "领先", "优秀", "breakthrough", "success", "excellent"}
	negativeWords = []string{"失败", "问题", "风险", "担忧", "争议", "failure", "problem", "risk"}

	topicCategories = map[string]string{
		"deep-learning":    CategoryTechnology,
		"nlp":              CategoryTechnology,
		"computer-vision":  CategoryTechnology,
		"machine-learning": CategoryTechnology,
		"llm":              CategoryTechnology,
		"generative-ai":    CategoryApplication,
	}

	keywordCategories = []struct {
		category string
		terms    []string
	}{
		{CategoryResearch, []string{"research", "研究", "paper", "论文"}},
		{CategoryProduct, []string{"product", "产品", "launch", "发布", "release"}},
		{CategoryInvestment, []string{"investment", "投资", "funding", "融资"}},
	}

	categoryOrder = []string{
		CategoryTechnology, CategoryApplication, CategoryResearch, CategoryProduct, CategoryInvestment,
	}
)

// analyzeSentiment counts distinct lexicon hits on each side.
func analyzeSentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)
	positive := countPresent(lower, positiveWords)
	negative := countPresent(lower, negativeWords)

	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}

	s := domain.Sentiment{
		Scores: map[string]float64{
			string(domain.SentimentPositive): float64(positive) / float64(words),
			string(domain.SentimentNegative): float64(negative) / float64(words),
		},
	}
	switch {
	case positive > negative:
		s.Label = domain.SentimentPositive
		s.Confidence = min(0.9, 0.5+float64(positive)*0.1)
	case negative > positive:
		s.Label = domain.SentimentNegative
		s.Confidence = min(0.9, 0.5+float64(negative)*0.1)
	default:
		s.Label = domain.SentimentNeutral
		s.Confidence = 0.7
	}
	return s
}

func countPresent(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// categorize maps topics and exact keyword terms onto categories, defaulting to Industry.
func categorize(keywords []domain.Keyword, topics []string) []string {
	found := map[string]bool{}
	for _, t := range topics {
		if c, ok := topicCategories[t]; ok {
			found[c] = true
		}
	}

	terms := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		terms[strings.ToLower(kw.Term)] = struct{}{}
	}
	for _, rule := range keywordCategories {
		for _, term := range rule.terms {
			if _, ok := terms[term]; ok {
				found[rule.category] = true
				break
			}
		}
	}

	categories := make([]string, 0, len(found))
	for _, c := range categoryOrder {
		if found[c] {
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		categories = append(categories, CategoryIndustry)
	}
	return categories
}

// mergeTags keeps collector tags and adds the strongest of the top keywords.
func mergeTags(original []string, keywords []domain.Keyword) []string {
	seen := map[string]struct{}{}
	tags := make([]string, 0, len(original)+tagKeywordLimit)
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, tag := range original {
		add(tag)
	}
	for i, kw := range keywords {
		if i >= tagKeywordLimit {
			break
		}
		if kw.Score > tagKeywordMinimum {
			add(kw.Term)
		}
	}
	return tags
}

// extractiveSummary returns the first 200 runes, cut back to a sentence end when one falls
// past the midpoint.
func extractiveSummary(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryRunes {
		return text
	}

	head := runes[:summaryRunes]
	cut := lastRune(head, '。')
	if cut == -1 {
		cut = lastRune(head, '.')
	}
	if cut > summaryMinCut {
		return string(head[:cut+1])
	}
	return string(head) + "..."
}

func lastRune(runes []rune, target rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}
