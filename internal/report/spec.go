package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"ContentDigest/internal/aggregate"
)

// ErrInvalidSpec reports section definitions that fail schema validation.
var ErrInvalidSpec = errors.New("invalid section spec")

// SectionKind selects the payload shape of a section.
type SectionKind string

const (
	KindNewsList          SectionKind = "news_list"
	KindCategorizedList   SectionKind = "categorized_list"
	KindGroupedList       SectionKind = "grouped_list"
	KindSummary           SectionKind = "summary"
	KindExecutiveSummary  SectionKind = "executive_summary"
	KindTrendAnalysis     SectionKind = "trend_analysis"
	KindInsights          SectionKind = "insights"
	KindInvestmentSummary SectionKind = "investment_summary"
)

// SectionSpec is the filter + limit + shape configuration of one section.
type SectionSpec struct {
	ID       string               `json:"section_id" yaml:"sectionId"`
	Name     string               `json:"section_name,omitempty" yaml:"sectionName"`
	Kind     SectionKind          `json:"section_type" yaml:"sectionType"`
	Order    int                  `json:"order,omitempty" yaml:"order"`
	Filters  aggregate.FilterSpec `json:"filters,omitempty" yaml:"filters"`
	MaxItems int                  `json:"max_items,omitempty" yaml:"maxItems"`
}

// Report types with dedicated titles.
const (
	TypeDaily   = "daily"
	TypeWeekly  = "weekly"
	TypeMonthly = "monthly"
)

// ReportSpec configures one generated report.
type ReportSpec struct {
	Type           string        `json:"report_type" yaml:"reportType"`
	Name           string        `json:"name,omitempty" yaml:"name"`
	Start          *time.Time    `json:"start,omitempty" yaml:"start"`
	End            *time.Time    `json:"end,omitempty" yaml:"end"`
	Categories     []string      `json:"categories,omitempty" yaml:"categories"`
	Keywords       []string      `json:"keywords,omitempty" yaml:"keywords"`
	Sections       []SectionSpec `json:"sections" yaml:"sections"`
	IncludeSummary bool          `json:"include_summary,omitempty" yaml:"includeSummary"`
}

//go:embed sections.schema.json
var sectionsSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ParseSections validates raw JSON against the section schema and decodes it.
func ParseSections(raw []byte) ([]SectionSpec, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidSpec, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	var sections []SectionSpec
	if err := json.Unmarshal(bytes.TrimSpace(raw), &sections); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalidSpec, err)
	}
	return sections, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("sections.schema.json", strings.NewReader(sectionsSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("sections.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, errors.New("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("payload contains trailing content")
	}
	return value, nil
}
