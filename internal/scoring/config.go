package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when factor weights are negative or do not sum to 1.
var ErrInvalidWeights = errors.New("invalid scoring weights")

const weightTolerance = 1e-6

// Weights holds the per-factor share of the weighted sum.
type Weights struct {
	Timeliness float64 `yaml:"timeliness"`
	Authority  float64 `yaml:"authority"`
	Relevance  float64 `yaml:"relevance"`
	Engagement float64 `yaml:"engagement"`
	Quality    float64 `yaml:"quality"`
	Uniqueness float64 `yaml:"uniqueness"`
}

// Sum adds all weights.
func (w Weights) Sum() float64 {
	return w.Timeliness + w.Authority + w.Relevance + w.Engagement + w.Quality + w.Uniqueness
}

// Validate checks that every weight is finite and non-negative and the total is 1.
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"timeliness", w.Timeliness},
		{"authority", w.Authority},
		{"relevance", w.Relevance},
		{"engagement", w.Engagement},
		{"quality", w.Quality},
		{"uniqueness", w.Uniqueness},
	}
	for _, n := range named {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) || n.value < 0 {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, n.name, n.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.6f", ErrInvalidWeights, sum)
	}
	return nil
}

// Config is the externally supplied scoring table set.
type Config struct {
	Weights           Weights            `yaml:"weights"`
	AuthoritySources  map[string]float64 `yaml:"authoritySources"`
	ImportantKeywords map[string]float64 `yaml:"importantKeywords"`
	AIKeywords        []string           `yaml:"aiKeywords"`
	AICategories      []string           `yaml:"aiCategories"`
	NoveltyTerms      []string           `yaml:"noveltyTerms"`
}

// DefaultWeights returns timeliness 0.25, authority 0.20, relevance 0.20, engagement 0.15,
// quality 0.10, uniqueness 0.10.
func DefaultWeights() Weights {
	return Weights{
		Timeliness: 0.25,
		Authority:  0.20,
		Relevance:  0.20,
		Engagement: 0.15,
		Quality:    0.10,
		Uniqueness: 0.10,
	}
}

// DefaultConfig returns the stock tables.
//
// Important keyword weights are boost strengths above 1: a title hit multiplies the score by
// 1 + (weight-1)*0.5, so "breakthrough" at 1.5 yields a 1.25 boost.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		AuthoritySources: map[string]float64{
			"openai":                1.0,
			"google":                0.95,
			"microsoft":             0.95,
			"meta":                  0.9,
			"deepmind":              0.95,
			"anthropic":             0.9,
			"nvidia":                0.85,
			"techcrunch":            0.8,
			"verge":                 0.75,
			"wired":                 0.75,
			"mit technology review": 0.85,
			"ieee":                  0.85,
			"arxiv":                 0.9,
			"nature":                0.95,
			"science":               0.95,
			"新华社":                   0.85,
			"人民日报":                  0.85,
			"中科院":                   0.9,
			"清华大学":                  0.85,
			"北京大学":                  0.85,
		},
		ImportantKeywords: map[string]float64{
			"breakthrough":     1.5,
			"revolutionary":    1.45,
			"state-of-the-art": 1.425,
			"novel":            1.4,
			"significant":      1.375,
			"突破":               1.5,
			"革命性":              1.45,
			"重大":               1.425,
			"创新":               1.4,
			"首次":               1.425,
			"最新":               1.35,
		},
		AIKeywords: []string{
			"ai", "artificial intelligence", "人工智能", "machine learning", "机器学习",
			"deep learning", "深度学习", "neural", "神经",
		},
		AICategories: []string{"技术", "研究", "AI", "人工智能", "Technology", "Research"},
		NoveltyTerms: []string{
			"首次", "first", "创新", "innovative", "突破", "breakthrough",
			"新型", "novel", "独家", "exclusive", "原创", "original",
		},
	}
}
