package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ContentDigest/internal/cleaner"
	"ContentDigest/internal/config"
	"ContentDigest/internal/dedup"
	"ContentDigest/internal/domain"
	"ContentDigest/internal/extractor"
	"ContentDigest/internal/infrastructure/cache"
	"ContentDigest/internal/infrastructure/llm"
	"ContentDigest/internal/infrastructure/parser"
	"ContentDigest/internal/infrastructure/scheduler"
	"ContentDigest/internal/infrastructure/storage"
	"ContentDigest/internal/logging"
	"ContentDigest/internal/ports"
	"ContentDigest/internal/report"
	"ContentDigest/internal/scanner"
	"ContentDigest/internal/scoring"
	"ContentDigest/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	processor  *usecase.Processor
	ingestor   *usecase.Ingestor
	scheduler  *usecase.Scheduler
	reports    *report.Builder
	repository *storage.PostgresRepository
	closers    []func() error
}

// New builds the application. Redis and Postgres are optional: without a Redis address dedup
// runs on an in-process cache, without a DSN processed content is not persisted.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	backend, err := a.dedupBackend(ctx)
	if err != nil {
		return nil, err
	}
	dedupCache := dedup.New(backend, dedup.Options{
		TTLs:             dedup.ProcessingTTLs(),
		SerializeContent: cfg.Processing.SerializeDedup,
		Logger:           baseLogger,
	})

	cl, err := cleaner.New(cfg.Cleaner)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build cleaner: %w", err)
	}
	scorer, err := scoring.New(cfg.Scoring, scoring.WithLogger(baseLogger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build scorer: %w", err)
	}

	a.processor, err = usecase.NewProcessor(usecase.ProcessorDeps{
		Cleaner:   cl,
		Extractor: extractor.New(cfg.Extraction, extractor.WithLogger(baseLogger)),
		Scorer:    scorer,
		Dedup:     dedupCache,
		Logger:    baseLogger,
		Settings: usecase.ProcessorSettings{
			MinCleanedLength: cfg.Processing.MinCleanedLength,
			MaxKeywords:      cfg.Processing.MaxKeywords,
			Domain:           cfg.Processing.Domain,
			BaseAuthority:    cfg.Processing.BaseAuthority,
			Workers:          cfg.Processing.Workers,
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var repository ports.ContentRepository
	if cfg.Database.DSN != "" {
		if err := a.openRepository(ctx); err != nil {
			a.Close()
			return nil, err
		}
		repository = a.repository
	}

	registry := scanner.NewRegistry(
		parser.NewArxivScanner(nil),
		parser.NewRSSScanner(nil),
	)
	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger)

	a.ingestor, err = usecase.NewIngestor(usecase.IngestorDeps{
		Source:     source,
		Processor:  a.processor,
		Repository: repository,
		Logger:     baseLogger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location())
	a.scheduler = usecase.NewScheduler(driver, a.ingestor, cfg.Scheduler.Lookback, baseLogger)

	var summarizer ports.Summarizer
	if cfg.ChatGPT.APIKey != "" {
		summarizer = llm.NewChatGPTClient(cfg.ChatGPT)
	}
	a.reports = report.NewBuilder(report.BuilderOptions{
		Summarizer:     summarizer,
		SummaryTimeout: cfg.Report.SummaryTimeout,
		Logger:         baseLogger,
	})

	return a, nil
}

func (a *Application) dedupBackend(ctx context.Context) (ports.KeyValueCache, error) {
	rc := a.cfg.Redis
	if !rc.Enabled() {
		a.logger.Info("dedup uses in-process cache", "max_entries", rc.MemoryMaxEntries)
		return cache.NewMemoryCache(rc.MemoryMaxEntries, nil), nil
	}

	redisCache, err := cache.DialRedis(ctx, cache.RedisOptions{
		URL:          rc.URL,
		Addrs:        rc.Addrs,
		MasterName:   rc.MasterName,
		Username:     rc.Username,
		Password:     rc.Password,
		DB:           rc.DB,
		KeyPrefix:    rc.KeyPrefix,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect dedup cache: %w", err)
	}
	a.closers = append(a.closers, redisCache.Close)
	return redisCache, nil
}

func (a *Application) openRepository(ctx context.Context) error {
	db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)

	repo, err := storage.NewPostgresRepository(db, a.cfg.Database.Table)
	if err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	a.repository = repo
	return nil
}

// RunOnce executes a single ingest cycle covering the configured lookback.
func (a *Application) RunOnce(ctx context.Context) (usecase.CycleReport, error) {
	since := time.Now().In(a.cfg.Scheduler.Location()).Add(-a.cfg.Scheduler.Lookback)
	return a.ingestor.RunCycle(ctx, since)
}

// Serve runs scheduled ingest cycles and the metrics endpoint until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	path := a.cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("metrics listening", "addr", server.Addr, "path", path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		_ = server.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics shutdown", "error", err)
	}
	return runErr
}

// Process runs documents through the processor without persisting them.
func (a *Application) Process(ctx context.Context, docs []domain.RawDocument) usecase.BatchResult {
	return a.processor.ProcessBatch(ctx, docs)
}

// LoadCorpus reads processed content in [start, end] from the repository.
func (a *Application) LoadCorpus(ctx context.Context, start, end time.Time) ([]*domain.ProcessedContent, error) {
	if a.repository == nil {
		return nil, errors.New("no database configured")
	}
	items, err := a.repository.ListBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	corpus := make([]*domain.ProcessedContent, len(items))
	for i := range items {
		corpus[i] = &items[i]
	}
	return corpus, nil
}

// Reports exposes the report builder.
func (a *Application) Reports() *report.Builder {
	return a.reports
}

// DefaultSections returns the configured report layout.
func (a *Application) DefaultSections() []report.SectionSpec {
	return a.cfg.Report.Sections
}

// IncludeSummary reports whether reports should carry an overall summary by default.
func (a *Application) IncludeSummary() bool {
	return a.cfg.Report.IncludeSummary
}

// Close releases external connections in reverse order of acquisition.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
