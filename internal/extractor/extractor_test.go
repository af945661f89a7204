package extractor

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"ContentDigest/internal/domain"
)

type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }

func (failingStrategy) Extract(*Document, int) ([]domain.Keyword, error) {
	return nil, errors.New("model unavailable")
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "panicking" }

func (panickingStrategy) Extract(*Document, int) ([]domain.Keyword, error) {
	panic("index out of range")
}

const aiText = "Deep learning models keep improving. The new deep learning model from OpenAI uses transformer attention. " +
	"Researchers said deep learning and neural network advances matter for every lab."

func findKeyword(keywords []domain.Keyword, term string) (domain.Keyword, bool) {
	for _, kw := range keywords {
		if kw.Term == term {
			return kw, true
		}
	}
	return domain.Keyword{}, false
}

func TestExtractKeywordsMergesAndSorts(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig(), WithLanguageDetector(nil))
	keywords := ex.ExtractKeywords(aiText, 10, "AI")

	if len(keywords) == 0 || len(keywords) > 10 {
		t.Fatalf("unexpected keyword count %d", len(keywords))
	}

	seen := map[string]bool{}
	for i, kw := range keywords {
		if kw.Score < 0 || kw.Score > 1 {
			t.Fatalf("score out of range for %q: %f", kw.Term, kw.Score)
		}
		if i > 0 && keywords[i-1].Score < kw.Score {
			t.Fatalf("keywords not sorted at %d: %v", i, keywords)
		}
		key := strings.ToLower(kw.Term)
		if seen[key] {
			t.Fatalf("duplicate term %q", kw.Term)
		}
		seen[key] = true
	}

	dl, ok := findKeyword(keywords, "deep learning")
	if !ok {
		t.Fatalf("expected gazetteer term in %v", keywords)
	}
	if dl.Kind != domain.KeywordDomainTerm || dl.Score < 0.9-1e-9 {
		t.Fatalf("unexpected gazetteer keyword: %+v", dl)
	}
}

func TestGazetteerRequiresDomainOrIndicator(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig(), WithLanguageDetector(nil))

	plain := ex.ExtractKeywords("The weather in Paris was sunny. Tourists enjoyed the river cruise and a prompt lunch.", 20, "")
	for _, kw := range plain {
		if kw.Kind == domain.KeywordDomainTerm {
			t.Fatalf("gazetteer fired without indicator: %+v", kw)
		}
	}

	flagged := ex.ExtractKeywords("Neural methods changed how a prompt is written. Every prompt matters.", 20, "")
	kw, ok := findKeyword(flagged, "prompt")
	if !ok {
		t.Fatalf("expected prompt keyword in %v", flagged)
	}
	if kw.Score < 0.6-1e-9 {
		t.Fatalf("expected merged max score for prompt, got %+v", kw)
	}
}

func TestExtractKeywordsFallsBackToFrequency(t *testing.T) {
	t.Parallel()

	for name, strategy := range map[string]Strategy{"error": failingStrategy{}, "panic": panickingStrategy{}} {
		ex := New(DefaultConfig(), WithLanguageDetector(nil), WithStrategies(StatisticalStrategy{}, strategy))
		keywords := ex.ExtractKeywords(aiText, 5, "AI")
		if len(keywords) == 0 || len(keywords) > 5 {
			t.Fatalf("%s: unexpected fallback size %d", name, len(keywords))
		}
		for _, kw := range keywords {
			if kw.Kind != domain.KeywordFrequency {
				t.Fatalf("%s: expected frequency keywords, got %+v", name, kw)
			}
		}
		if keywords[0].Term != "deep" && keywords[0].Term != "learning" {
			t.Fatalf("%s: unexpected top term %q", name, keywords[0].Term)
		}
	}
}

func TestExtractKeywordsEmptyText(t *testing.T) {
	t.Parallel()

	if got := New(DefaultConfig(), WithLanguageDetector(nil)).ExtractKeywords("", 10, "AI"); len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
}

func TestExtractEntities(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig(), WithLanguageDetector(nil))
	text := "OpenAI and Google released GPT-4.5 while 清华大学 tested ChatGPT. OpenAI again. Metadata is not Meta-branded."
	entities := ex.ExtractEntities(text)

	wanted := []domain.Entity{
		{Text: "OpenAI", Label: domain.EntityOrg, Confidence: 0.8},
		{Text: "Google", Label: domain.EntityOrg, Confidence: 0.8},
		{Text: "清华大学", Label: domain.EntityOrg, Confidence: 0.8},
		{Text: "GPT-4.5", Label: domain.EntityProduct, Confidence: 0.9},
		{Text: "ChatGPT", Label: domain.EntityProduct, Confidence: 0.9},
	}
	found := map[domain.Entity]bool{}
	counts := map[string]int{}
	for _, e := range entities {
		counts[e.Text+"/"+string(e.Label)]++
		found[e] = true
	}
	for _, e := range wanted {
		if !found[e] {
			t.Fatalf("missing entity %+v in %v", e, entities)
		}
	}
	if counts["OpenAI/ORG"] != 1 {
		t.Fatalf("expected OpenAI deduplicated, got %d", counts["OpenAI/ORG"])
	}
	if counts["Metadata/ORG"] != 0 {
		t.Fatalf("roster must match whole words: %v", entities)
	}
}

func TestTopicsFromKeywords(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig(), WithLanguageDetector(nil))
	got := ex.TopicsFromKeywords([]domain.Keyword{
		{Term: "Deep Learning"},
		{Term: "GPT-4"},
		{Term: "image generation"},
		{Term: "GAN training"},
	})
	want := []string{"deep-learning", "computer-vision", "generative-ai", "llm"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}

	if len(ex.TopicsFromKeywords(nil)) != 0 {
		t.Fatal("expected no topics without keywords")
	}
}

func TestExtractTopicsFromText(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig(), WithLanguageDetector(nil))
	got := ex.ExtractTopics("深度学习 and neural network research on image models")

	has := func(name string) bool {
		for _, topic := range got {
			if topic == name {
				return true
			}
		}
		return false
	}
	if !has("deep-learning") || !has("computer-vision") {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := tokenize("The GPT-4 model 深度学习 2024 a")
	want := []string{"gpt-4", "model", "深度", "度学", "学习"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
}

func TestDetectLanguageHeuristic(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig(), WithLanguageDetector(nil))
	cases := []struct {
		text string
		want string
	}{
		{text: "", want: ""},
		{text: "12345", want: ""},
		{text: "模 model", want: "mixed"},
		{text: "人工智能发展迅速 AI", want: "zh"},
		{text: "OpenAI released models 模型", want: "en"},
	}
	for _, tc := range cases {
		if got := ex.DetectLanguage(tc.text); got != tc.want {
			t.Fatalf("DetectLanguage(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestDetectLanguageWithLingua(t *testing.T) {
	t.Parallel()

	ex := New(DefaultConfig())
	if got := ex.DetectLanguage("The quick brown fox jumps over the lazy dog near the river bank."); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := ex.DetectLanguage("今天天气很好，我们一起去公园散步吧。"); got != "zh" {
		t.Fatalf("expected zh, got %q", got)
	}
}
