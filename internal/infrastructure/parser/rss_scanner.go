package parser

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ContentDigest/internal/domain"
	"ContentDigest/internal/scanner"
)

// RSSScanner reads RSS and Atom feeds listed as site categories.
type RSSScanner struct {
	client *http.Client
	parser *gofeed.Parser
	now    func() time.Time
}

var _ scanner.Scanner = (*RSSScanner)(nil)

func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client, parser: gofeed.NewParser(), now: time.Now}
}

func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches each feed and keeps items published at or after req.Since. Items without a
// publish time are kept. The "max_items" option caps items taken per feed.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawDocument, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	maxItems := 0
	if raw, ok := req.Options["max_items"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("site %s: invalid max_items %q: %w", req.SiteName, raw, err)
		}
		maxItems = n
	}

	var results []domain.RawDocument
	for _, cat := range req.Categories {
		feed, err := r.fetchFeed(ctx, cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		collectedAt := r.now().UTC()
		taken := 0
		for _, item := range feed.Items {
			if maxItems > 0 && taken >= maxItems {
				break
			}
			doc := toRawDocument(item, req.SiteName, feedName(feed, req.SiteName), collectedAt)
			if doc.PublishTime != nil && !req.Since.IsZero() && doc.PublishTime.Before(req.Since) {
				continue
			}
			results = append(results, doc)
			taken++
		}
	}

	return results, nil
}

func (r *RSSScanner) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func feedName(feed *gofeed.Feed, fallback string) string {
	if title := strings.TrimSpace(feed.Title); title != "" {
		return title
	}
	return fallback
}

func toRawDocument(item *gofeed.Item, siteName, sourceName string, collectedAt time.Time) domain.RawDocument {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}

	var published *time.Time
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		published = &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		published = &t
	}

	var author string
	if item.Author != nil {
		author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" {
		sum := sha256.Sum256([]byte(item.Title))
		id = fmt.Sprintf("%x", sum[:16])
	}

	return domain.RawDocument{
		ID:            id,
		SourceID:      siteName,
		SourceType:    domain.SourceRSS,
		SourceName:    sourceName,
		Title:         strings.TrimSpace(item.Title),
		Body:          body,
		URL:           item.Link,
		Author:        author,
		PublishTime:   published,
		Tags:          item.Categories,
		CollectedTime: collectedAt,
	}
}
