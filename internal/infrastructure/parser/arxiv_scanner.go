package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ContentDigest/internal/domain"
	"ContentDigest/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
	userAgent    = "ContentDigest/1.0"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls arXiv listing pages and emits web documents published since the request cutoff.
type ArxivScanner struct {
	client   *http.Client
	pageSize int
	now      func() time.Time
}

var _ scanner.Scanner = (*ArxivScanner)(nil)

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivScanner{client: client, pageSize: 200, now: time.Now}
}

func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks every category listing page by page until entries fall before req.Since.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawDocument, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	cutoff := req.Since.UTC().Truncate(24 * time.Hour)
	results := make([]domain.RawDocument, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			pageDocs, shouldContinue := a.extractDocuments(doc, cutoff, req.SiteName, cat.Name)
			for _, d := range pageDocs {
				if _, ok := seen[d.ID]; ok {
					continue
				}
				seen[d.ID] = struct{}{}
				results = append(results, d)
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	return results, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractDocuments keeps entries dated on or after cutoff. Listings are newest first, so the
// first older entry ends the category.
func (a *ArxivScanner) extractDocuments(doc *goquery.Document, cutoff time.Time, siteName, category string) ([]domain.RawDocument, bool) {
	var (
		collected    []domain.RawDocument
		continueScan = true
		processed    int
	)
	collectedAt := a.now().UTC()

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		entry := parseEntry(dt, dd, siteName, category)
		if entry.ID == "" {
			return true
		}
		entry.CollectedTime = collectedAt

		if entry.PublishTime != nil && entry.PublishTime.UTC().Before(cutoff) {
			continueScan = false
			return false
		}
		collected = append(collected, entry)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, siteName, category string) domain.RawDocument {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}
	if id == "" {
		id = href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	if abstract == "" {
		abstract = dd.Find(".mathjax").Last().Text()
	}
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	var published *time.Time
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			published = &parsed
		}
	}

	sourceName := siteName
	if category != "" {
		sourceName = fmt.Sprintf("%s/%s", siteName, category)
	}

	var tags []string
	if category != "" {
		tags = []string{category}
	}

	return domain.RawDocument{
		ID:          id,
		SourceID:    siteName,
		SourceType:  domain.SourceWeb,
		SourceName:  sourceName,
		Title:       title,
		Body:        abstract,
		URL:         href,
		Author:      strings.Join(authors, ", "),
		PublishTime: published,
		Tags:        tags,
	}
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
