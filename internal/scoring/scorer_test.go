package scoring

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"ContentDigest/internal/domain"
)

var fixedNow = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(DefaultConfig(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return s
}

func ago(d time.Duration) *time.Time {
	ts := fixedNow.Add(-d)
	return &ts
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewRejectsInvalidWeights(t *testing.T) {
	t.Parallel()

	cases := map[string]Weights{
		"short sum": {Timeliness: 0.25, Authority: 0.20, Relevance: 0.20, Engagement: 0.15, Quality: 0.10},
		"negative":  {Timeliness: 0.45, Authority: 0.20, Relevance: 0.20, Engagement: 0.15, Quality: 0.10, Uniqueness: -0.10},
		"nan":       {Timeliness: math.NaN(), Authority: 1},
	}
	for name, weights := range cases {
		cfg := DefaultConfig()
		cfg.Weights = weights
		if _, err := New(cfg); !errors.Is(err, ErrInvalidWeights) {
			t.Fatalf("%s: expected ErrInvalidWeights, got %v", name, err)
		}
	}

	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights rejected: %v", err)
	}
}

func TestNewRejectsAuthorityOutOfRange(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.AuthoritySources = map[string]float64{"example": 1.5}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for authority above 1")
	}
}

func TestTimelinessSteps(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	cases := []struct {
		publish *time.Time
		want    float64
	}{
		{nil, 0.3},
		{ago(-time.Hour), 1.0},
		{ago(30 * time.Minute), 1.0},
		{ago(2 * time.Hour), 0.9},
		{ago(12 * time.Hour), 0.8},
		{ago(48 * time.Hour), 0.6},
		{ago(5 * 24 * time.Hour), 0.4},
		{ago(10 * 24 * time.Hour), 0.2},
		{ago(40 * 24 * time.Hour), 0.1},
	}
	for i, tc := range cases {
		got := s.Breakdown(&domain.ProcessedContent{PublishTime: tc.publish}).Timeliness
		if !almostEqual(got, tc.want) {
			t.Fatalf("case %d: timeliness = %f, want %f", i, got, tc.want)
		}
	}
}

func TestTimelinessIsMonotonic(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	prev := math.Inf(1)
	for hours := 0; hours < 24*45; hours += 3 {
		got := s.Breakdown(&domain.ProcessedContent{PublishTime: ago(time.Duration(hours) * time.Hour)}).Timeliness
		if got > prev {
			t.Fatalf("timeliness increased at %dh: %f > %f", hours, got, prev)
		}
		prev = got
	}
}

func TestAuthority(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	cases := []struct {
		source string
		base   float64
		want   float64
	}{
		{"OpenAI Blog", 0.7, 1.0},
		{"Nature News", 0.99, 0.99},
		{"Meta AI Science Desk", 0.7, 0.95},
		{"random blog", 0, 0.5},
		{"random blog", 0.6, 0.6},
		{"", 0, 0.5},
		{"", 0.7, 0.7},
	}
	for _, tc := range cases {
		got := s.Breakdown(&domain.ProcessedContent{Source: tc.source, SourceAuthority: tc.base}).Authority
		if !almostEqual(got, tc.want) {
			t.Fatalf("authority(%q, %v) = %f, want %f", tc.source, tc.base, got, tc.want)
		}
	}
}

func TestRelevanceAndUniqueness(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	content := &domain.ProcessedContent{
		Keywords: []domain.Keyword{
			{Term: "Machine Learning"},
			{Term: "AI chips"},
			{Term: "neural nets"},
			{Term: "deep learning"},
			{Term: "breakthrough model"},
			{Term: "first-ever"},
			{Term: "novel idea"},
		},
		Categories: []string{"Technology"},
	}
	b := s.Breakdown(content)
	if !almostEqual(b.Relevance, 1.0) {
		t.Fatalf("relevance = %f, want 1.0", b.Relevance)
	}
	if !almostEqual(b.Uniqueness, 0.8) {
		t.Fatalf("uniqueness = %f, want 0.8", b.Uniqueness)
	}

	empty := s.Breakdown(&domain.ProcessedContent{})
	if !almostEqual(empty.Relevance, 0.5) || !almostEqual(empty.Uniqueness, 0.5) {
		t.Fatalf("unexpected defaults: %+v", empty)
	}
}

func TestEngagement(t *testing.T) {
	t.Parallel()

	if got := engagement(nil); got != 0.5 {
		t.Fatalf("missing metrics = %f, want 0.5", got)
	}
	if got := engagement(&domain.EngagementMetrics{}); got != 0 {
		t.Fatalf("zero metrics = %f, want 0", got)
	}
	full := &domain.EngagementMetrics{Views: 1_000_000, Shares: 10_000, Comments: 1_000, Likes: 100_000}
	if got := engagement(full); !almostEqual(got, 1) {
		t.Fatalf("saturated metrics = %f, want 1", got)
	}
	huge := &domain.EngagementMetrics{Views: 1 << 40, Shares: 1 << 40, Comments: 1 << 40, Likes: 1 << 40}
	if got := engagement(huge); got != 1 {
		t.Fatalf("expected clamp to 1, got %f", got)
	}
}

func TestBoostTakesMaxTitleMatchThenMultiplies(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	orgs := []domain.Entity{
		{Text: "OpenAI", Label: domain.EntityOrg},
		{Text: "Google", Label: domain.EntityOrg},
		{Text: "Microsoft", Label: domain.EntityOrg},
	}

	cases := []struct {
		name    string
		content *domain.ProcessedContent
		want    float64
	}{
		{"none", &domain.ProcessedContent{Title: "Weekly roundup"}, 1.0},
		{"title", &domain.ProcessedContent{Title: "A Breakthrough in AI"}, 1.25},
		{"title max", &domain.ProcessedContent{Title: "Novel breakthrough"}, 1.25},
		{"orgs", &domain.ProcessedContent{Title: "A Breakthrough in AI", Entities: orgs}, 1.25 * 1.1},
		{"all", &domain.ProcessedContent{Title: "A Breakthrough in AI", Entities: orgs, QualityScore: 0.9}, 1.25 * 1.1 * 1.05},
	}
	for _, tc := range cases {
		if got := s.Breakdown(tc.content).Boost; !almostEqual(got, tc.want) {
			t.Fatalf("%s: boost = %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestBreakthroughTitleElevatesScore(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	base := domain.ProcessedContent{
		Title:           "AI model update",
		Source:          "TechCrunch",
		SourceAuthority: 0.7,
		PublishTime:     ago(48 * time.Hour),
		QualityScore:    0.75,
	}
	boosted := base
	boosted.Title = "Breakthrough AI model"

	plain := s.CalculateImportance(&base)
	elevated := s.CalculateImportance(&boosted)

	if !almostEqual(plain, 0.61) {
		t.Fatalf("plain score = %f, want 0.61", plain)
	}
	if !almostEqual(elevated, 0.61*1.25) {
		t.Fatalf("boosted score = %f, want %f", elevated, 0.61*1.25)
	}
	if s.CalculateImportance(&boosted) != elevated {
		t.Fatal("scoring is not deterministic")
	}
}

func TestScoreIsBounded(t *testing.T) {
	t.Parallel()

	s := newTestScorer(t)
	rng := rand.New(rand.NewSource(42))
	sources := []string{"", "OpenAI", "unknown", "新华社", "arXiv listing"}
	titles := []string{"", "Breakthrough", "革命性 突破 重大", "plain"}

	for i := 0; i < 500; i++ {
		var entities []domain.Entity
		for j := 0; j < rng.Intn(6); j++ {
			entities = append(entities, domain.Entity{Text: "org", Label: domain.EntityOrg})
		}
		var engagementMetrics *domain.EngagementMetrics
		if rng.Intn(2) == 0 {
			engagementMetrics = &domain.EngagementMetrics{
				Views:    rng.Int63n(1 << 40),
				Shares:   rng.Int63n(1 << 30),
				Comments: rng.Int63n(1 << 20),
				Likes:    rng.Int63n(1 << 30),
			}
		}
		content := &domain.ProcessedContent{
			Title:           titles[rng.Intn(len(titles))],
			Source:          sources[rng.Intn(len(sources))],
			SourceAuthority: rng.Float64() * 1.5,
			QualityScore:    rng.Float64()*2 - 0.5,
			PublishTime:     ago(time.Duration(rng.Int63n(int64(60 * 24 * time.Hour)))),
			Keywords:        []domain.Keyword{{Term: "breakthrough ai"}, {Term: "first novel exclusive original"}},
			Categories:      []string{"Technology"},
			Entities:        entities,
			Engagement:      engagementMetrics,
		}
		got := s.CalculateImportance(content)
		if got < 0 || got > 1 {
			t.Fatalf("score out of bounds: %f for %+v", got, content)
		}
	}

	if got := s.CalculateImportance(nil); got != 0.5 {
		t.Fatalf("nil content = %f, want 0.5", got)
	}
}
