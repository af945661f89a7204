package extractor

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"ContentDigest/internal/domain"
)

// Strategy is one keyword signal source. Implementations must be safe for concurrent use.
type Strategy interface {
	Name() string
	Extract(doc *Document, limit int) ([]domain.Keyword, error)
}

const (
	textRankWindow     = 5
	textRankDamping    = 0.85
	textRankIterations = 30
	textRankScale      = 0.8
	gazetteerStep      = 0.3
)

// StatisticalStrategy scores terms by TF-IDF, treating each sentence as a document.
type StatisticalStrategy struct{}

func (StatisticalStrategy) Name() string { return string(domain.KeywordTFIDF) }

func (StatisticalStrategy) Extract(doc *Document, limit int) ([]domain.Keyword, error) {
	if len(doc.Tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	tf := map[string]int{}
	for _, token := range doc.Tokens {
		tf[token]++
	}
	df := map[string]int{}
	for _, sentence := range doc.Sentences {
		seen := map[string]struct{}{}
		for _, token := range sentence {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			df[token]++
		}
	}

	n := float64(len(doc.Sentences))
	total := float64(len(doc.Tokens))
	scores := make(map[string]float64, len(tf))
	for term, count := range tf {
		idf := math.Log((1+n)/(1+float64(df[term]))) + 1
		scores[term] = float64(count) / total * idf
	}

	return topTerms(scores, limit, 1, domain.KeywordTFIDF), nil
}

// GraphStrategy ranks terms by TextRank centrality over a sliding co-occurrence window.
// It keeps half of the requested limit, scaled below the statistical signal.
type GraphStrategy struct{}

func (GraphStrategy) Name() string { return string(domain.KeywordTextRank) }

func (GraphStrategy) Extract(doc *Document, limit int) ([]domain.Keyword, error) {
	limit /= 2
	if len(doc.Tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	edges := map[string]map[string]float64{}
	link := func(a, b string) {
		if edges[a] == nil {
			edges[a] = map[string]float64{}
		}
		edges[a][b]++
	}
	for _, sentence := range doc.Sentences {
		for i := range sentence {
			for j := i + 1; j < len(sentence) && j-i < textRankWindow; j++ {
				if sentence[i] == sentence[j] {
					continue
				}
				link(sentence[i], sentence[j])
				link(sentence[j], sentence[i])
			}
		}
	}
	if len(edges) == 0 {
		return nil, nil
	}

	vertices := make([]string, 0, len(edges))
	outWeight := make(map[string]float64, len(edges))
	for v, neighbours := range edges {
		vertices = append(vertices, v)
		for _, w := range neighbours {
			outWeight[v] += w
		}
	}
	sort.Strings(vertices)

	rank := make(map[string]float64, len(vertices))
	for _, v := range vertices {
		rank[v] = 1
	}
	for iter := 0; iter < textRankIterations; iter++ {
		next := make(map[string]float64, len(vertices))
		for _, v := range vertices {
			sum := 0.0
			for u, w := range edges[v] {
				sum += w / outWeight[u] * rank[u]
			}
			next[v] = (1 - textRankDamping) + textRankDamping*sum
		}
		rank = next
	}

	return topTerms(rank, limit, textRankScale, domain.KeywordTextRank), nil
}

// GazetteerStrategy scores fixed domain terms by occurrence count. It only fires for the AI
// domain or when the text trips one of the indicator words.
type GazetteerStrategy struct {
	terms      []termMatcher
	indicators []termMatcher
}

type termMatcher struct {
	term string
	expr *regexp.Regexp
}

// NewGazetteerStrategy builds a gazetteer over the given terms and indicators. ASCII terms
// match on word boundaries, other terms as substrings.
func NewGazetteerStrategy(terms, indicators []string) *GazetteerStrategy {
	return &GazetteerStrategy{
		terms:      compileMatchers(terms),
		indicators: compileMatchers(indicators),
	}
}

func (g *GazetteerStrategy) Name() string { return string(domain.KeywordDomainTerm) }

func (g *GazetteerStrategy) Extract(doc *Document, _ int) ([]domain.Keyword, error) {
	if doc.Domain != "AI" && !g.Indicates(doc.Lower) {
		return nil, nil
	}

	var keywords []domain.Keyword
	for _, m := range g.terms {
		count := m.count(doc.Lower)
		if count == 0 {
			continue
		}
		keywords = append(keywords, domain.Keyword{
			Term:  m.term,
			Score: math.Min(1, float64(count)*gazetteerStep),
			Kind:  domain.KeywordDomainTerm,
		})
	}
	return keywords, nil
}

// Indicates reports whether lowercased text mentions any AI indicator word.
func (g *GazetteerStrategy) Indicates(lower string) bool {
	for _, m := range g.indicators {
		if m.count(lower) > 0 {
			return true
		}
	}
	return false
}

func compileMatchers(terms []string) []termMatcher {
	matchers := make([]termMatcher, 0, len(terms))
	for _, term := range terms {
		lower := strings.ToLower(strings.TrimSpace(term))
		if lower == "" {
			continue
		}
		m := termMatcher{term: lower}
		if isASCII(lower) {
			m.expr = regexp.MustCompile(`\b` + regexp.QuoteMeta(lower) + `\b`)
		}
		matchers = append(matchers, m)
	}
	return matchers
}

func (m termMatcher) count(lower string) int {
	if m.expr != nil {
		return len(m.expr.FindAllStringIndex(lower, -1))
	}
	return strings.Count(lower, m.term)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// topTerms normalizes scores to the maximum, applies scale and keeps the best limit terms.
func topTerms(scores map[string]float64, limit int, scale float64, kind domain.KeywordKind) []domain.Keyword {
	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore <= 0 {
		return nil
	}

	keywords := make([]domain.Keyword, 0, len(scores))
	for term, s := range scores {
		keywords = append(keywords, domain.Keyword{Term: term, Score: s / maxScore * scale, Kind: kind})
	}
	sortKeywords(keywords)
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

func sortKeywords(keywords []domain.Keyword) {
	sort.SliceStable(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Term < keywords[j].Term
	})
}
