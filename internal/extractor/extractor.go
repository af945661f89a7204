package extractor

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/cases"

	"ContentDigest/internal/domain"
	"ContentDigest/internal/ports"
)

const (
	defaultMaxKeywords = 20
	topicKeywordLimit  = 30
	orgConfidence      = 0.8
	productConfidence  = 0.9
)

// Config carries the overridable term tables.
type Config struct {
	DomainTerms  []string `yaml:"domainTerms"`
	AIIndicators []string `yaml:"aiIndicators"`
}

// DefaultConfig returns the bilingual AI gazetteer and indicator list.
func DefaultConfig() Config {
	return Config{
		DomainTerms: []string{
			"gpt", "bert", "transformer", "llm", "nlp", "cnn", "rnn", "lstm", "gan", "vae",
			"reinforcement learning", "deep learning", "machine learning", "neural network",
			"attention", "embedding", "fine-tuning", "prompt", "ai", "artificial intelligence",
			"人工智能", "机器学习", "深度学习", "神经网络", "自然语言处理", "计算机视觉", "强化学习",
			"生成对抗网络", "大语言模型", "预训练", "微调", "提示词", "向量", "嵌入",
		},
		AIIndicators: []string{
			"ai", "人工智能", "machine learning", "机器学习", "deep learning", "深度学习", "neural", "神经",
		},
	}
}

type topic struct {
	Name       string
	Indicators []string
}

var topics = []topic{
	{Name: "deep-learning", Indicators: []string{"深度学习", "神经网络", "deep learning", "neural network"}},
	{Name: "nlp", Indicators: []string{"nlp", "自然语言", "文本", "语言模型", "language"}},
	{Name: "computer-vision", Indicators: []string{"视觉", "图像", "vision", "image", "cv"}},
	{Name: "generative-ai", Indicators: []string{"生成", "generate", "gan", "diffusion", "创作"}},
	{Name: "llm", Indicators: []string{"llm", "大模型", "语言模型", "gpt", "claude"}},
	{Name: "machine-learning", Indicators: []string{"机器学习", "machine learning", "ml", "算法"}},
}

var (
	orgPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[^\s，。、]{2,10}(?:公司|集团|研究院|研究所|实验室|大学|学院)`),
		regexp.MustCompile(`\b(?:Google|Microsoft|OpenAI|Meta|Amazon|Apple|IBM|Intel|NVIDIA)\b|阿里|腾讯|百度|字节跳动|华为`),
	}
	productPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bGPT-\d+(?:\.\d+)?`),
		regexp.MustCompile(`(?i)\b(?:BERT|RoBERTa|DALL-E|Stable Diffusion|Midjourney)\b`),
		regexp.MustCompile(`(?i)\b(?:ChatGPT|Claude|Gemini|LLaMA|PaLM)\b`),
	}
)

// Extractor derives keywords, entities, topics and language from cleaned text.
type Extractor struct {
	strategies []Strategy
	gazetteer  *GazetteerStrategy
	detector   lingua.LanguageDetector
	logger     *slog.Logger
}

var _ ports.KeywordExtractor = (*Extractor)(nil)

// Option customizes an Extractor.
type Option func(*Extractor)

// WithStrategies replaces the default strategy set.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// WithLanguageDetector overrides the lingua detector; nil leaves only the heuristic.
func WithLanguageDetector(detector lingua.LanguageDetector) Option {
	return func(e *Extractor) {
		e.detector = detector
	}
}

// WithLogger attaches a logger for degraded-mode warnings.
func WithLogger(log *slog.Logger) Option {
	return func(e *Extractor) {
		if log != nil {
			e.logger = log.With("component", "extractor")
		}
	}
}

// New builds an extractor running the statistical, graph and gazetteer strategies in that order.
func New(cfg Config, opts ...Option) *Extractor {
	gazetteer := NewGazetteerStrategy(cfg.DomainTerms, cfg.AIIndicators)
	e := &Extractor{
		strategies: []Strategy{StatisticalStrategy{}, GraphStrategy{}, gazetteer},
		gazetteer:  gazetteer,
		detector:   sharedDetector(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractKeywords merges every strategy's output by case-folded term, keeping the best score.
// Any strategy failure degrades the whole call to frequency scoring.
func (e *Extractor) ExtractKeywords(text string, maxKeywords int, domainName string) []domain.Keyword {
	if text == "" {
		return []domain.Keyword{}
	}
	if maxKeywords <= 0 {
		maxKeywords = defaultMaxKeywords
	}

	doc := newDocument(text, domainName)

	var all []domain.Keyword
	for _, strategy := range e.strategies {
		keywords, err := runStrategy(strategy, doc, maxKeywords)
		if err != nil {
			e.warn("keyword strategy failed, using frequency fallback", "strategy", strategy.Name(), "error", err)
			return frequencyKeywords(doc, maxKeywords)
		}
		all = append(all, keywords...)
	}

	merged := mergeKeywords(all)
	if len(merged) > maxKeywords {
		merged = merged[:maxKeywords]
	}
	return merged
}

func runStrategy(strategy Strategy, doc *Document, limit int) (keywords []domain.Keyword, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", strategy.Name(), r)
		}
	}()
	return strategy.Extract(doc, limit)
}

func mergeKeywords(keywords []domain.Keyword) []domain.Keyword {
	folder := cases.Fold()
	index := map[string]int{}
	merged := make([]domain.Keyword, 0, len(keywords))
	for _, kw := range keywords {
		key := folder.String(kw.Term)
		if i, ok := index[key]; ok {
			if kw.Score > merged[i].Score {
				merged[i] = kw
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, kw)
	}
	sortKeywords(merged)
	return merged
}

func frequencyKeywords(doc *Document, limit int) []domain.Keyword {
	if len(doc.Tokens) == 0 {
		return []domain.Keyword{}
	}

	freq := map[string]int{}
	for _, token := range doc.Tokens {
		freq[token]++
	}
	total := float64(len(doc.Tokens))

	keywords := make([]domain.Keyword, 0, len(freq))
	for term, count := range freq {
		keywords = append(keywords, domain.Keyword{
			Term:  term,
			Score: float64(count) / total,
			Kind:  domain.KeywordFrequency,
		})
	}
	sortKeywords(keywords)
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

// ExtractEntities applies the ORG and PRODUCT rules, deduplicated by text and label.
func (e *Extractor) ExtractEntities(text string) []domain.Entity {
	entities := []domain.Entity{}
	if text == "" {
		return entities
	}

	seen := map[domain.Entity]struct{}{}
	collect := func(patterns []*regexp.Regexp, label domain.EntityLabel, confidence float64) {
		for _, expr := range patterns {
			for _, match := range expr.FindAllString(text, -1) {
				entity := domain.Entity{Text: match, Label: label, Confidence: confidence}
				if _, ok := seen[entity]; ok {
					continue
				}
				seen[entity] = struct{}{}
				entities = append(entities, entity)
			}
		}
	}
	collect(orgPatterns, domain.EntityOrg, orgConfidence)
	collect(productPatterns, domain.EntityProduct, productConfidence)
	return entities
}

// ExtractTopics extracts keywords without a domain hint and maps them onto the taxonomy.
func (e *Extractor) ExtractTopics(text string) []string {
	return e.TopicsFromKeywords(e.ExtractKeywords(text, topicKeywordLimit, ""))
}

// TopicsFromKeywords returns taxonomy entries, in taxonomy order, whose indicators occur inside
// any keyword term.
func (e *Extractor) TopicsFromKeywords(keywords []domain.Keyword) []string {
	result := []string{}
	if len(keywords) == 0 {
		return result
	}

	folder := cases.Fold()
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, folder.String(kw.Term))
	}

	for _, t := range topics {
		if matchesAny(terms, t.Indicators) {
			result = append(result, t.Name)
		}
	}
	return result
}

// IsAIContent reports whether text trips the indicator check used to enable the gazetteer.
func (e *Extractor) IsAIContent(text string) bool {
	return e.gazetteer.Indicates(strings.ToLower(text))
}

func matchesAny(terms, indicators []string) bool {
	for _, indicator := range indicators {
		for _, term := range terms {
			if strings.Contains(term, indicator) {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
