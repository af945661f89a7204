package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ContentDigest/internal/domain"
	"ContentDigest/internal/ports"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "processed_content"

var tableExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var columns = []string{
	"content_id", "title", "cleaned_text", "summary", "keywords", "entities", "topics",
	"categories", "tags", "sentiment", "importance_score", "quality_score", "source_authority",
	"source", "author", "publish_time", "url", "extracted_links", "engagement", "language",
	"processing_time",
}

// PostgresRepository persists processed content into Postgres.
type PostgresRepository struct {
	db    *sql.DB
	table string
	psql  sq.StatementBuilderType
}

var _ ports.ContentRepository = (*PostgresRepository)(nil)

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB; table may be schema-qualified.
func NewPostgresRepository(db *sql.DB, table string) (*PostgresRepository, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableExpr.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresRepository{
		db:    db,
		table: table,
		psql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// EnsureSchema creates the content table when absent.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    content_id       TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    cleaned_text     TEXT NOT NULL,
    summary          TEXT NOT NULL,
    keywords         JSONB NOT NULL DEFAULT '[]',
    entities         JSONB NOT NULL DEFAULT '[]',
    topics           TEXT[] NOT NULL DEFAULT '{}',
    categories       TEXT[] NOT NULL DEFAULT '{}',
    tags             TEXT[] NOT NULL DEFAULT '{}',
    sentiment        JSONB NOT NULL DEFAULT '{}',
    importance_score DOUBLE PRECISION NOT NULL,
    quality_score    DOUBLE PRECISION NOT NULL,
    source_authority DOUBLE PRECISION NOT NULL,
    source           TEXT NOT NULL,
    author           TEXT NOT NULL DEFAULT '',
    publish_time     TIMESTAMPTZ,
    url              TEXT NOT NULL,
    extracted_links  TEXT[] NOT NULL DEFAULT '{}',
    engagement       JSONB,
    language         TEXT NOT NULL DEFAULT '',
    processing_time  TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, r.table)

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create content table: %w", err)
	}
	return nil
}

// SaveProcessed upserts the processed content snapshot keyed by content_id.
func (r *PostgresRepository) SaveProcessed(ctx context.Context, content domain.ProcessedContent) error {
	if r.db == nil {
		return nil
	}

	keywords, err := json.Marshal(nonNil(content.Keywords))
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	entities, err := json.Marshal(nonNil(content.Entities))
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}
	sentiment, err := json.Marshal(content.Sentiment)
	if err != nil {
		return fmt.Errorf("marshal sentiment: %w", err)
	}
	var engagement any
	if content.Engagement != nil {
		raw, err := json.Marshal(content.Engagement)
		if err != nil {
			return fmt.Errorf("marshal engagement: %w", err)
		}
		engagement = raw
	}

	var publish any
	if content.PublishTime != nil {
		publish = content.PublishTime.UTC()
	}

	query, args, err := r.psql.Insert(r.table).
		Columns(columns...).
		Values(
			content.ContentID, content.Title, content.CleanedText, content.Summary,
			keywords, entities,
			pq.StringArray(nonNil(content.Topics)), pq.StringArray(nonNil(content.Categories)), pq.StringArray(nonNil(content.Tags)),
			sentiment,
			content.ImportanceScore, content.QualityScore, content.SourceAuthority,
			content.Source, content.Author, publish, content.URL,
			pq.StringArray(nonNil(content.ExtractedLinks)), engagement, content.Language,
			content.ProcessingTime.UTC(),
		).
		Suffix(`ON CONFLICT (content_id) DO UPDATE
SET summary = EXCLUDED.summary,
    keywords = EXCLUDED.keywords,
    entities = EXCLUDED.entities,
    categories = EXCLUDED.categories,
    importance_score = EXCLUDED.importance_score,
    quality_score = EXCLUDED.quality_score,
    processing_time = EXCLUDED.processing_time,
    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}

	return nil
}

// ListBetween returns content whose reference time (publish, else processing) lies in
// [start, end], most important first.
func (r *PostgresRepository) ListBetween(ctx context.Context, start, end time.Time) ([]domain.ProcessedContent, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := r.psql.Select(columns...).
		From(r.table).
		Where(sq.Expr("COALESCE(publish_time, processing_time) BETWEEN ? AND ?", start.UTC(), end.UTC())).
		OrderBy("importance_score DESC", "content_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}

	var result []domain.ProcessedContent
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

func scanContent(rows *sql.Rows) (domain.ProcessedContent, error) {
	var (
		c                               domain.ProcessedContent
		keywords, entities, sentiment   []byte
		engagement                      []byte
		topics, categories, tags, links pq.StringArray
		publish                         sql.NullTime
	)

	err := rows.Scan(
		&c.ContentID, &c.Title, &c.CleanedText, &c.Summary,
		&keywords, &entities, &topics, &categories, &tags, &sentiment,
		&c.ImportanceScore, &c.QualityScore, &c.SourceAuthority,
		&c.Source, &c.Author, &publish, &c.URL, &links, &engagement, &c.Language,
		&c.ProcessingTime,
	)
	if err != nil {
		return c, fmt.Errorf("scan content: %w", err)
	}

	if err := unmarshalColumn(keywords, &c.Keywords); err != nil {
		return c, fmt.Errorf("content %s keywords: %w", c.ContentID, err)
	}
	if err := unmarshalColumn(entities, &c.Entities); err != nil {
		return c, fmt.Errorf("content %s entities: %w", c.ContentID, err)
	}
	if err := unmarshalColumn(sentiment, &c.Sentiment); err != nil {
		return c, fmt.Errorf("content %s sentiment: %w", c.ContentID, err)
	}
	if len(engagement) > 0 {
		c.Engagement = &domain.EngagementMetrics{}
		if err := json.Unmarshal(engagement, c.Engagement); err != nil {
			return c, fmt.Errorf("content %s engagement: %w", c.ContentID, err)
		}
	}

	c.Topics = []string(topics)
	c.Categories = []string(categories)
	c.Tags = []string(tags)
	c.ExtractedLinks = []string(links)
	if publish.Valid {
		t := publish.Time.UTC()
		c.PublishTime = &t
	}
	c.ProcessingTime = c.ProcessingTime.UTC()

	return c, nil
}

func unmarshalColumn(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
