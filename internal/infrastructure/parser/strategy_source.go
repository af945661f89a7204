package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContentDigest/internal/config"
	"ContentDigest/internal/domain"
	"ContentDigest/internal/metrics"
	"ContentDigest/internal/ports"
	"ContentDigest/internal/scanner"
)

// bodyFingerprintLen bounds how much of the body feeds the in-batch content fingerprint.
const bodyFingerprintLen = 500

// StrategySource implements DocumentSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.DocumentSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	if log != nil {
		log = log.With("component", "collector")
	}
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchDocuments scans every configured site. A failing site is logged and skipped; an error is
// returned only when every site failed. Documents repeated within the batch, by URL or by
// title and leading body, are dropped.
func (s *StrategySource) FetchDocuments(ctx context.Context, since time.Time) ([]domain.RawDocument, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch documents", "sites", len(s.sites), "since", since.Format(time.RFC3339))

	var (
		aggregated []domain.RawDocument
		failures   []error
		seenURLs   = map[string]struct{}{}
		seenBodies = map[string]struct{}{}
	)
	for _, site := range s.sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docs, err := s.scanSite(ctx, site, since)
		if err != nil {
			metrics.ObserveSiteFailure(site.Name)
			s.warn("site scan failed", "site", site.Name, "error", err)
			failures = append(failures, err)
			continue
		}

		kept := 0
		for _, d := range docs {
			if d.SourceID == "" {
				d.SourceID = site.Name
			}
			if d.SourceName == "" {
				d.SourceName = site.Name
			}
			if d.PublishTime != nil && !since.IsZero() && d.PublishTime.Before(since) {
				continue
			}
			if d.URL != "" {
				if _, dup := seenURLs[d.URL]; dup {
					continue
				}
				seenURLs[d.URL] = struct{}{}
			}
			fp := fingerprint(d)
			if _, dup := seenBodies[fp]; dup {
				continue
			}
			seenBodies[fp] = struct{}{}

			aggregated = append(aggregated, d)
			kept++
		}
		metrics.ObserveCollected(site.Name, kept)
		s.debug("site produced documents", "site", site.Name, "scanned", len(docs), "kept", kept)
	}

	if len(s.sites) > 0 && len(failures) == len(s.sites) {
		return nil, fmt.Errorf("all sites failed: %w", errors.Join(failures...))
	}

	s.debug("strategy source done", "total_documents", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig, since time.Time) ([]domain.RawDocument, error) {
	s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	req := scanner.Request{
		Since:      since,
		SiteName:   site.Name,
		Options:    site.Options,
		Categories: toScannerCategories(site.Categories),
	}

	docs, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
	}
	return docs, nil
}

func fingerprint(d domain.RawDocument) string {
	body := []rune(d.Body)
	if len(body) > bodyFingerprintLen {
		body = body[:bodyFingerprintLen]
	}
	sum := sha256.Sum256([]byte(d.Title + ":" + string(body)))
	return hex.EncodeToString(sum[:])
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
