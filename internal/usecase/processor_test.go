package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"ContentDigest/internal/cleaner"
	"ContentDigest/internal/dedup"
	"ContentDigest/internal/domain"
	"ContentDigest/internal/extractor"
	"ContentDigest/internal/infrastructure/cache"
	"ContentDigest/internal/scoring"
)

var testNow = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

const englishParagraph = "Researchers at OpenAI and Google unveiled a breakthrough deep learning model that improves reasoning across many benchmarks. " +
	"The team said the first results show strong gains for machine learning research and neural network training. " +
	"Microsoft engineers plan to release the model to partners next month after further safety review. "

const chineseParagraph = "研究人员发布了新的人工智能模型，在多项基准测试中取得突破，深度学习社区对此反应热烈。"

type panicCleaner struct{}

func (panicCleaner) Clean(string) domain.CleaningResult { panic("parser exploded") }

type cancelingCleaner struct {
	inner  *cleaner.Cleaner
	cancel context.CancelFunc
}

func (c cancelingCleaner) Clean(raw string) domain.CleaningResult {
	c.cancel()
	return c.inner.Clean(raw)
}

func newTestProcessor(t *testing.T, settings ProcessorSettings) (*Processor, *dedup.Cache) {
	t.Helper()

	cl, err := cleaner.New(cleaner.DefaultConfig())
	if err != nil {
		t.Fatalf("cleaner: %v", err)
	}
	sc, err := scoring.New(scoring.DefaultConfig(), scoring.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	dd := dedup.New(cache.NewMemoryCache(0, nil), dedup.Options{})

	p, err := NewProcessor(ProcessorDeps{
		Cleaner:   cl,
		Extractor: extractor.New(extractor.DefaultConfig(), extractor.WithLanguageDetector(nil)),
		Scorer:    sc,
		Dedup:     dd,
		Clock:     func() time.Time { return testNow },
		Settings:  settings,
	})
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p, dd
}

func rawDocument(id, title, url string) domain.RawDocument {
	published := testNow.Add(-2 * time.Hour)
	return domain.RawDocument{
		ID:         id,
		SourceID:   "techcrunch-ai",
		SourceType: domain.SourceRSS,
		SourceName: "TechCrunch",
		Title:      title,
		Body: `<html><head><script>trackVisitor("script payload")</script></head><body>
<div class="ad-banner">Sponsored offer you will love</div>
<article><p>` + englishParagraph + `</p><p>` + chineseParagraph + `</p>
<a href="https://example.com/paper">paper</a></article></body></html>`,
		URL:           url,
		PublishTime:   &published,
		Tags:          []string{"ai"},
		CollectedTime: testNow,
	}
}

func TestProcessProducesScoredContent(t *testing.T) {
	t.Parallel()

	p, _ := newTestProcessor(t, ProcessorSettings{})
	out := p.Process(context.Background(), rawDocument("doc-1", "Breakthrough AI model", "https://example.com/1"))

	if out.Kind != domain.OutcomeSuccess {
		t.Fatalf("expected success, got %+v", out)
	}
	c := out.Content
	if strings.Contains(c.CleanedText, "script payload") || strings.Contains(c.CleanedText, "Sponsored offer") {
		t.Fatalf("cleaned text still has script or ad text: %q", c.CleanedText)
	}
	if c.QualityScore <= 0.7 {
		t.Fatalf("expected quality above 0.7, got %f", c.QualityScore)
	}
	if c.ImportanceScore < 0 || c.ImportanceScore > 1 {
		t.Fatalf("importance out of range: %f", c.ImportanceScore)
	}
	if len(c.Keywords) == 0 || len(c.Keywords) > defaultMaxKeywords {
		t.Fatalf("unexpected keyword count %d", len(c.Keywords))
	}
	if c.Source != "TechCrunch" || c.SourceAuthority != defaultBaseAuthority {
		t.Fatalf("unexpected source fields: %q %f", c.Source, c.SourceAuthority)
	}
	if !c.ProcessingTime.Equal(testNow) {
		t.Fatalf("unexpected processing time %v", c.ProcessingTime)
	}
	if c.Sentiment.Label != domain.SentimentPositive {
		t.Fatalf("expected positive sentiment, got %+v", c.Sentiment)
	}
	if len(c.ExtractedLinks) != 1 || c.ExtractedLinks[0] != "https://example.com/paper" {
		t.Fatalf("unexpected links %v", c.ExtractedLinks)
	}
	if c.Tags[0] != "ai" {
		t.Fatalf("collector tags must come first: %v", c.Tags)
	}
}

func TestBreakthroughTitleRaisesImportance(t *testing.T) {
	t.Parallel()

	boostedProc, _ := newTestProcessor(t, ProcessorSettings{})
	plainProc, _ := newTestProcessor(t, ProcessorSettings{})

	boosted := boostedProc.Process(context.Background(), rawDocument("a", "Breakthrough AI model", "https://example.com/a"))
	plain := plainProc.Process(context.Background(), rawDocument("b", "AI model", "https://example.com/b"))

	if boosted.Kind != domain.OutcomeSuccess || plain.Kind != domain.OutcomeSuccess {
		t.Fatalf("expected both processed: %+v / %+v", boosted, plain)
	}
	if boosted.Content.ImportanceScore <= plain.Content.ImportanceScore {
		t.Fatalf("expected boost: %f <= %f", boosted.Content.ImportanceScore, plain.Content.ImportanceScore)
	}
}

func TestProcessSkipsDuplicates(t *testing.T) {
	t.Parallel()

	p, _ := newTestProcessor(t, ProcessorSettings{})
	ctx := context.Background()

	first := p.Process(ctx, rawDocument("1", "Title", "https://example.com/x"))
	if first.Kind != domain.OutcomeSuccess {
		t.Fatalf("expected first success, got %+v", first)
	}

	sameURL := p.Process(ctx, rawDocument("2", "Another title", "https://example.com/x"))
	if sameURL.Kind != domain.OutcomeSkipped || sameURL.Reason != domain.SkipDuplicateURL {
		t.Fatalf("expected duplicate_url skip, got %+v", sameURL)
	}

	republished := rawDocument("3", "Title", "https://mirror.example.org/x")
	republished.Body = strings.ReplaceAll(republished.Body, "<p>", "<p>\n\n  ")
	sameContent := p.Process(ctx, republished)
	if sameContent.Kind != domain.OutcomeSkipped || sameContent.Reason != domain.SkipDuplicateContent {
		t.Fatalf("expected duplicate_content skip, got %+v", sameContent)
	}
}

func TestProcessSkipReasons(t *testing.T) {
	t.Parallel()

	p, _ := newTestProcessor(t, ProcessorSettings{})
	ctx := context.Background()

	noTitle := rawDocument("1", "", "https://example.com/1")
	if out := p.Process(ctx, noTitle); out.Reason != domain.SkipMissingFields {
		t.Fatalf("expected missing_fields, got %+v", out)
	}

	noBody := rawDocument("2", "Title", "https://example.com/2")
	noBody.Body = "  "
	if out := p.Process(ctx, noBody); out.Reason != domain.SkipMissingFields {
		t.Fatalf("expected missing_fields, got %+v", out)
	}

	short := rawDocument("3", "Title", "https://example.com/3")
	short.Body = "<p>Too short to keep.</p>"
	if out := p.Process(ctx, short); out.Kind != domain.OutcomeSkipped || out.Reason != domain.SkipTooShort {
		t.Fatalf("expected too_short, got %+v", out)
	}
}

func TestProcessRecoversStagePanic(t *testing.T) {
	t.Parallel()

	sc, err := scoring.New(scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	p, err := NewProcessor(ProcessorDeps{
		Cleaner:   panicCleaner{},
		Extractor: extractor.New(extractor.DefaultConfig(), extractor.WithLanguageDetector(nil)),
		Scorer:    sc,
	})
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	out := p.Process(context.Background(), rawDocument("boom", "Title", "https://example.com/boom"))
	if out.Kind != domain.OutcomeFailed || out.Err == nil {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
}

func TestNewProcessorRequiresStages(t *testing.T) {
	t.Parallel()

	if _, err := NewProcessor(ProcessorDeps{}); err == nil {
		t.Fatal("expected error without stages")
	}
}

func TestProcessBatchSortsAndCounts(t *testing.T) {
	t.Parallel()

	p, _ := newTestProcessor(t, ProcessorSettings{Workers: 3})

	var docs []domain.RawDocument
	for i := 0; i < 8; i++ {
		doc := rawDocument(fmt.Sprintf("doc-%d", i), fmt.Sprintf("Story %d", i), fmt.Sprintf("https://example.com/%d", i))
		doc.Body += fmt.Sprintf("<p>Unique paragraph number %d with extra detail for the reader.</p>", i)
		if i%2 == 0 {
			doc.Title = "Breakthrough " + doc.Title
		}
		published := testNow.Add(-time.Duration(i*20) * time.Hour)
		doc.PublishTime = &published
		docs = append(docs, doc)
	}
	missing := rawDocument("missing", "", "https://example.com/missing")
	docs = append(docs, missing)

	result := p.ProcessBatch(context.Background(), docs)

	if result.Succeeded != 8 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if len(result.Processed) != 8 || len(result.Outcomes) != len(docs) {
		t.Fatalf("unexpected result sizes: %d processed, %d outcomes", len(result.Processed), len(result.Outcomes))
	}
	for i := 1; i < len(result.Processed); i++ {
		if result.Processed[i-1].ImportanceScore < result.Processed[i].ImportanceScore {
			t.Fatalf("results not sorted at %d", i)
		}
	}
	if result.Outcomes[len(docs)-1].Reason != domain.SkipMissingFields {
		t.Fatalf("outcomes must keep input order: %+v", result.Outcomes[len(docs)-1])
	}
}

func TestProcessBatchHonoursCancellation(t *testing.T) {
	t.Parallel()

	p, _ := newTestProcessor(t, ProcessorSettings{Workers: 1})
	docs := []domain.RawDocument{
		rawDocument("1", "One", "https://example.com/1"),
		rawDocument("2", "Two", "https://example.com/2"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := p.ProcessBatch(ctx, docs)
	if result.Succeeded != 0 || result.Skipped != 2 || len(result.Processed) != 0 {
		t.Fatalf("expected everything cancelled, got %+v", result)
	}
	for _, o := range result.Outcomes {
		if o.Reason != domain.SkipCancelled {
			t.Fatalf("expected cancelled skip, got %+v", o)
		}
	}

	inner, err := cleaner.New(cleaner.DefaultConfig())
	if err != nil {
		t.Fatalf("cleaner: %v", err)
	}
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	p.cleaner = cancelingCleaner{inner: inner, cancel: cancel}

	result = p.ProcessBatch(ctx, docs)
	if result.Succeeded != 0 || result.Skipped != 2 || result.Failed != 0 {
		t.Fatalf("expected in-flight and pending documents cancelled, got %+v", result)
	}
}

func TestIsDuplicate(t *testing.T) {
	t.Parallel()

	p, _ := newTestProcessor(t, ProcessorSettings{})
	ctx := context.Background()
	body := "Breakthrough AI model\n" + englishParagraph

	if p.IsDuplicate(ctx, body) {
		t.Fatal("first check must report unseen")
	}
	if !p.IsDuplicate(ctx, body) {
		t.Fatal("second check must report duplicate")
	}
}

func TestExtractiveSummary(t *testing.T) {
	t.Parallel()

	short := "Short text."
	if got := extractiveSummary(short); got != short {
		t.Fatalf("short text changed: %q", got)
	}

	sentence := strings.Repeat("a", 120) + ". " + strings.Repeat("b", 200)
	if got := extractiveSummary(sentence); got != strings.Repeat("a", 120)+"." {
		t.Fatalf("expected cut at sentence end, got %q", got)
	}

	noBreak := strings.Repeat("字", 250)
	if got := extractiveSummary(noBreak); got != strings.Repeat("字", 200)+"..." {
		t.Fatalf("expected ellipsis, got %q", got)
	}
}

func TestCategorizeAndSentiment(t *testing.T) {
	t.Parallel()

	cats := categorize([]domain.Keyword{{Term: "Research"}, {Term: "funding"}}, []string{"generative-ai", "llm"})
	want := []string{CategoryTechnology, CategoryApplication, CategoryResearch, CategoryInvestment}
	if strings.Join(cats, ",") != strings.Join(want, ",") {
		t.Fatalf("categories = %v, want %v", cats, want)
	}
	if got := categorize(nil, nil); len(got) != 1 || got[0] != CategoryIndustry {
		t.Fatalf("expected default category, got %v", got)
	}

	neg := analyzeSentiment("The launch was a failure and a risk to the problem space")
	if neg.Label != domain.SentimentNegative || math.Abs(neg.Confidence-0.8) > 1e-9 {
		t.Fatalf("unexpected sentiment %+v", neg)
	}
	neutral := analyzeSentiment("nothing notable")
	if neutral.Label != domain.SentimentNeutral || neutral.Confidence != 0.7 {
		t.Fatalf("unexpected sentiment %+v", neutral)
	}
}
