package cleaner

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"ContentDigest/internal/domain"
	"ContentDigest/internal/ports"
)

const (
	fallbackQuality      = 0.3
	defaultMinLineLength = 10
	repeatedPunctuation  = ".!?。！？"
)

var (
	tagExpr         = regexp.MustCompile(`<[^>]+>`)
	spaceRunExpr    = regexp.MustCompile(`\s+`)
	horizontalSpace = regexp.MustCompile(`[\t\f\r\v \x{00A0}\x{3000}]+`)
	blankLinesExpr  = regexp.MustCompile(`\n{3,}`)
	hiddenStyleExpr = regexp.MustCompile(`(?i)display\s*:\s*none`)
	hanExpr         = regexp.MustCompile(`\p{Han}`)
	latinWordExpr   = regexp.MustCompile(`[a-zA-Z]{3,}`)
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true, "title": true,
	"tr": true, "ul": true,
}

// Config lists the fixed tag and pattern tables used by the cleaner.
type Config struct {
	RemoveTags    []string `yaml:"removeTags"`
	AdPatterns    []string `yaml:"adPatterns"`
	NoisePhrases  []string `yaml:"noisePhrases"`
	MinLineLength int      `yaml:"minLineLength"`
}

// DefaultConfig returns the stock denylist, ad heuristics and noise phrases.
func DefaultConfig() Config {
	return Config{
		RemoveTags: []string{"script", "style", "noscript", "iframe", "object", "embed"},
		AdPatterns: []string{
			`(^|[-_\s])ads?([-_\s]|$)`, `banner`, `sponsor`, `promo`, `advertis`,
			`popup`, `overlay`, `modal`, `newsletter`, `subscribe`,
		},
		NoisePhrases:  []string{"点击这里", "查看更多", "立即购买", "免费下载", "广告"},
		MinLineLength: defaultMinLineLength,
	}
}

// Cleaner strips markup, ads and noise from raw document bodies. It is stateless after construction.
type Cleaner struct {
	removeTags    string
	adPatterns    []*regexp.Regexp
	noisePhrases  []string
	minLineLength int
	parse         func(io.Reader) (*goquery.Document, error)
}

var _ ports.ContentCleaner = (*Cleaner)(nil)

// New compiles the ad patterns; an invalid pattern is a configuration error.
func New(cfg Config) (*Cleaner, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.AdPatterns))
	for _, p := range cfg.AdPatterns {
		expr, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile ad pattern %q: %w", p, err)
		}
		patterns = append(patterns, expr)
	}

	minLine := cfg.MinLineLength
	if minLine <= 0 {
		minLine = defaultMinLineLength
	}

	return &Cleaner{
		removeTags:    strings.Join(cfg.RemoveTags, ", "),
		adPatterns:    patterns,
		noisePhrases:  append([]string(nil), cfg.NoisePhrases...),
		minLineLength: minLine,
		parse:         goquery.NewDocumentFromReader,
	}, nil
}

// Clean runs the full cleaning pass. Parse failures degrade to a regex tag stripper.
func (c *Cleaner) Clean(raw string) domain.CleaningResult {
	if strings.TrimSpace(raw) == "" {
		return domain.CleaningResult{ExtractedLinks: []string{}}
	}

	doc, err := c.parse(strings.NewReader(raw))
	if err != nil || doc == nil {
		return fallbackClean(raw)
	}

	links := extractLinks(doc)
	c.strip(doc)

	var text strings.Builder
	for _, node := range doc.Nodes {
		flatten(node, &text)
	}

	cleaned := normalizeWhitespace(text.String())
	cleaned = c.removeNoise(cleaned)

	return domain.CleaningResult{
		CleanedText:    cleaned,
		ExtractedLinks: links,
		QualityScore:   qualityScore(cleaned, raw),
	}
}

func (c *Cleaner) strip(doc *goquery.Document) {
	if c.removeTags != "" {
		doc.Find(c.removeTags).Remove()
	}

	doc.Find("body [class], body [id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		return c.isAd(class) || c.isAd(id)
	}).Remove()

	doc.Find("body [style]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		return hiddenStyleExpr.MatchString(style)
	}).Remove()
}

func (c *Cleaner) isAd(value string) bool {
	if value == "" {
		return false
	}
	for _, expr := range c.adPatterns {
		if expr.MatchString(value) {
			return true
		}
	}
	return false
}

func (c *Cleaner) removeNoise(text string) string {
	if text == "" {
		return ""
	}

	for _, phrase := range c.noisePhrases {
		if phrase != "" {
			text = strings.ReplaceAll(text, phrase, "")
		}
	}
	text = collapsePunctuation(text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			kept = append(kept, "")
			continue
		}
		if utf8.RuneCountInString(line) < c.minLineLength && !hasLetter(line) {
			continue
		}
		kept = append(kept, line)
	}

	joined := blankLinesExpr.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
	return strings.TrimSpace(joined)
}

func flatten(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		b.WriteString(n.Data)
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		flatten(child, b)
	}
	if block {
		b.WriteByte('\n')
	}
}

func extractLinks(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			seen[href] = struct{}{}
		}
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

func normalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	text = horizontalSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = blankLinesExpr.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func collapsePunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	for _, r := range text {
		if r == prev && strings.ContainsRune(repeatedPunctuation, r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func qualityScore(cleaned, raw string) float64 {
	if cleaned == "" {
		return 0
	}

	score := 1.0
	length := utf8.RuneCountInString(cleaned)
	switch {
	case length < 100:
		score *= 0.5
	case length < 300:
		score *= 0.8
	}

	if rawLength := utf8.RuneCountInString(raw); rawLength > 0 {
		retention := float64(length) / float64(rawLength)
		switch {
		case retention < 0.1:
			score *= 0.7
		case retention > 0.9:
			score *= 0.9
		}
	}

	if !hanExpr.MatchString(cleaned) && !latinWordExpr.MatchString(cleaned) {
		score *= 0.3
	}

	special := 0
	for _, r := range cleaned {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			continue
		}
		special++
	}
	if float64(special)/float64(length) > 0.3 {
		score *= 0.8
	}

	return clamp01(score)
}

func fallbackClean(raw string) domain.CleaningResult {
	text := tagExpr.ReplaceAllString(raw, " ")
	text = strings.TrimSpace(spaceRunExpr.ReplaceAllString(text, " "))
	return domain.CleaningResult{
		CleanedText:    text,
		ExtractedLinks: []string{},
		QualityScore:   fallbackQuality,
	}
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
