package cleaner

import (
	"errors"
	"io"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const articleSentence = "Researchers at OpenAI unveiled a breakthrough deep learning model that improves reasoning across many benchmarks. "

func newTestCleaner(t *testing.T) *Cleaner {
	t.Helper()
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func sampleHTML() string {
	return `<html><head><title>AI news</title><script>var tracking = "script payload";</script><style>.x{color:red}</style></head>
<body>
  <div class="ad">Buy now limited offer</div>
  <div id="sidebar-banner">Banner text here</div>
  <article>
    <h1>Breakthrough AI model</h1>
    <p>` + strings.Repeat(articleSentence, 3) + `</p>
    <p>研究人员发布了新的人工智能模型，在多项基准测试中取得突破。</p>
    <a href="https://example.com/a">read</a>
    <a href="/relative/path">relative</a>
    <a href="https://example.com/a">again</a>
    <a href="http://example.org/b">other</a>
  </article>
  <div style="display: none">hidden text</div>
  <!-- comment text -->
</body></html>`
}

func TestCleanStripsMarkupAndNoise(t *testing.T) {
	t.Parallel()

	c := newTestCleaner(t)
	res := c.Clean(sampleHTML())

	for _, unwanted := range []string{"script payload", "color:red", "Buy now", "Banner text", "hidden text", "comment text", "<"} {
		if strings.Contains(res.CleanedText, unwanted) {
			t.Fatalf("cleaned text still contains %q:\n%s", unwanted, res.CleanedText)
		}
	}
	for _, wanted := range []string{"Breakthrough AI model", "deep learning model", "人工智能模型"} {
		if !strings.Contains(res.CleanedText, wanted) {
			t.Fatalf("cleaned text lost %q:\n%s", wanted, res.CleanedText)
		}
	}

	wantLinks := []string{"http://example.org/b", "https://example.com/a"}
	if !reflect.DeepEqual(res.ExtractedLinks, wantLinks) {
		t.Fatalf("unexpected links: %v", res.ExtractedLinks)
	}

	if res.QualityScore <= 0.7 {
		t.Fatalf("expected quality above 0.7, got %f", res.QualityScore)
	}
}

func TestCleanIsIdempotentForSameInput(t *testing.T) {
	t.Parallel()

	c := newTestCleaner(t)
	first := c.Clean(sampleHTML())
	second := c.Clean(sampleHTML())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%#v\n%#v", first, second)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	t.Parallel()

	res := newTestCleaner(t).Clean("   ")
	if res.CleanedText != "" || res.QualityScore != 0 || len(res.ExtractedLinks) != 0 {
		t.Fatalf("unexpected result for empty input: %#v", res)
	}
}

func TestCleanFallsBackWhenParsingFails(t *testing.T) {
	t.Parallel()

	c := newTestCleaner(t)
	c.parse = func(io.Reader) (*goquery.Document, error) {
		return nil, errors.New("boom")
	}

	res := c.Clean("<p>Hello <b>world</b></p>\n\n<p>again</p>")
	if res.CleanedText != "Hello world again" {
		t.Fatalf("unexpected fallback text: %q", res.CleanedText)
	}
	if res.QualityScore != fallbackQuality {
		t.Fatalf("expected fallback quality %f, got %f", fallbackQuality, res.QualityScore)
	}
	if len(res.ExtractedLinks) != 0 {
		t.Fatalf("fallback must not extract links: %v", res.ExtractedLinks)
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.AdPatterns = append(cfg.AdPatterns, "(")
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for invalid ad pattern")
	}
}

func TestAdPatternsRespectWordBoundaries(t *testing.T) {
	t.Parallel()

	c := newTestCleaner(t)
	cases := map[string]bool{
		"ad":            true,
		"top-ads":       true,
		"sponsored-box": true,
		"header":        false,
		"download":      false,
		"reader-view":   false,
	}
	for value, want := range cases {
		if got := c.isAd(value); got != want {
			t.Fatalf("isAd(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()

	got := normalizeWhitespace("  a \t b\n\n\n\n c  \u00a0 ")
	if got != "a b\n\nc" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestRemoveNoise(t *testing.T) {
	t.Parallel()

	c := newTestCleaner(t)
	got := c.removeNoise("点击这里Great news!!!\n12\n---\nWow???。。")
	if got != "Great news!\nWow?。" {
		t.Fatalf("unexpected noise removal: %q", got)
	}
}

func TestQualityScoreTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cleaned string
		raw     string
		want    float64
	}{
		{name: "empty", cleaned: "", raw: "<p></p>", want: 0},
		{name: "short full retention", cleaned: "short text here", raw: "short text here", want: 0.45},
		{name: "no language signal", cleaned: "12345 67890", raw: "12345 67890", want: 0.5 * 0.9 * 0.3},
		{name: "mostly symbols", cleaned: "ab ##### ####", raw: strings.Repeat("x", 50), want: 0.5 * 0.3 * 0.8},
	}

	for _, tc := range cases {
		if got := qualityScore(tc.cleaned, tc.raw); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: qualityScore = %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestCleanKeepsBodyWithAdLikeClass(t *testing.T) {
	t.Parallel()

	c := newTestCleaner(t)
	html := `<html><body class="has-newsletter-signup"><article><p>` + strings.Repeat(articleSentence, 4) +
		`</p></article><div class="newsletter">Sign up today</div></body></html>`
	res := c.Clean(html)

	if !strings.Contains(res.CleanedText, "deep learning model") {
		t.Fatalf("article text dropped with body class:\n%q", res.CleanedText)
	}
	if strings.Contains(res.CleanedText, "Sign up today") {
		t.Fatalf("nested newsletter block kept:\n%q", res.CleanedText)
	}
}
