package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ContentDigest/internal/aggregate"
	"ContentDigest/internal/domain"
)

// Report is an assembled set of sections over one corpus.
type Report struct {
	ID          string    `json:"report_id"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Type        string    `json:"report_type"`
	Sections    []Section `json:"sections"`
	Summary     string    `json:"summary,omitempty"`
	Metadata    Metadata  `json:"metadata"`
	GeneratedAt time.Time `json:"generated_time"`
}

// Metadata describes the corpus a report was built from.
type Metadata struct {
	TotalItems        int                  `json:"total_items"`
	Statistics        aggregate.Statistics `json:"statistics"`
	CategoriesCovered []string             `json:"categories_covered"`
}

// BuildReport narrows corpus by the report's time range, categories and keywords, sorts it by
// importance and builds every section in Order.
func (b *Builder) BuildReport(ctx context.Context, spec ReportSpec, corpus []*domain.ProcessedContent) Report {
	contents := b.selectContents(spec, corpus)
	now := b.now().UTC()

	specs := make([]SectionSpec, len(spec.Sections))
	copy(specs, spec.Sections)
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Order < specs[j].Order })

	sections := make([]Section, 0, len(specs))
	for _, s := range specs {
		sections = append(sections, b.BuildSection(ctx, s, contents))
	}

	r := Report{
		ID:       uuid.NewString(),
		Title:    reportTitle(spec, now),
		Subtitle: reportSubtitle(contents),
		Type:     spec.Type,
		Sections: sections,
		Metadata: Metadata{
			TotalItems:        len(contents),
			Statistics:        aggregate.CalculateStatistics(contents),
			CategoriesCovered: categoriesCovered(contents),
		},
		GeneratedAt: now,
	}
	if spec.IncludeSummary {
		r.Summary = b.overallSummary(ctx, contents, r.Metadata.Statistics)
	}

	b.info("report built", "report_id", r.ID, "type", r.Type, "items", len(contents), "sections", len(sections))
	return r
}

func (b *Builder) selectContents(spec ReportSpec, corpus []*domain.ProcessedContent) []*domain.ProcessedContent {
	contents := corpus
	if spec.Start != nil && spec.End != nil {
		contents = aggregate.FilterByTimeRange(contents, *spec.Start, *spec.End)
	}
	if len(spec.Categories) > 0 {
		contents = aggregate.ApplyFilters(contents, aggregate.FilterSpec{"categories": spec.Categories})
	}
	if len(spec.Keywords) > 0 {
		contents = aggregate.FilterByKeywords(contents, spec.Keywords)
	}
	return aggregate.SortByImportance(contents)
}

func reportTitle(spec ReportSpec, now time.Time) string {
	switch spec.Type {
	case TypeDaily:
		return "AI Daily - " + now.Format("2006-01-02")
	case TypeWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("AI Weekly - %d week %d", year, week)
	case TypeMonthly:
		return "AI Monthly - " + now.Format("January 2006")
	}
	if spec.Name != "" {
		return spec.Name
	}
	return "AI Report"
}

func reportSubtitle(contents []*domain.ProcessedContent) string {
	if len(contents) == 0 {
		return "No matching content"
	}
	categories := categoriesInOrder(contents)
	shown := categories
	if len(shown) > 3 {
		shown = shown[:3]
	}
	subtitle := fmt.Sprintf("%d items", len(contents))
	if len(shown) > 0 {
		subtitle += " covering " + strings.Join(shown, ", ")
		if len(categories) > 3 {
			subtitle += " and more"
		}
	}
	return subtitle
}

func (b *Builder) overallSummary(ctx context.Context, contents []*domain.ProcessedContent, stats aggregate.Statistics) string {
	if len(contents) == 0 {
		return "No content in this report."
	}
	if generated, ok := b.summarize(ctx, contents); ok {
		return generated
	}
	days := 0
	if stats.DateRange != nil {
		days = stats.DateRange.Days
	}
	return fmt.Sprintf("This report covers %d notable items over %d days.", stats.TotalCount, days)
}

func categoriesInOrder(contents []*domain.ProcessedContent) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range contents {
		if c == nil {
			continue
		}
		for _, category := range c.Categories {
			if _, ok := seen[category]; ok {
				continue
			}
			seen[category] = struct{}{}
			out = append(out, category)
		}
	}
	return out
}

func categoriesCovered(contents []*domain.ProcessedContent) []string {
	out := categoriesInOrder(contents)
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func (b *Builder) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}
