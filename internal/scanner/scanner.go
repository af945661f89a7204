package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ContentDigest/internal/domain"
)

// Category is one collectable endpoint of a site: a feed URL or a listing page.
type Category struct {
	Name string
	URL  string
}

// Request carries the parameters of one site scan.
type Request struct {
	Since      time.Time
	SiteName   string
	Categories []Category
	Options    map[string]string
}

// Scanner collects raw documents for a single site strategy (rss, arxiv).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawDocument, error)
}

// Registry maps scanner names from config to implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds a registry holding the given scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: map[string]Scanner{}}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// Names lists registered scanners in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
