package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContentDigest/internal/metrics"
	"ContentDigest/internal/ports"
)

// IngestorDeps wires the driven adapters into an ingest cycle.
type IngestorDeps struct {
	Source     ports.DocumentSource
	Processor  *Processor
	Repository ports.ContentRepository
	Logger     *slog.Logger
}

// Ingestor implements the fetch -> process -> persist workflow.
type Ingestor struct {
	source     ports.DocumentSource
	processor  *Processor
	repository ports.ContentRepository
	logger     *slog.Logger
}

// CycleReport summarizes one ingest cycle.
type CycleReport struct {
	Fetched   int `json:"fetched"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Persisted int `json:"persisted"`
}

// NewIngestor constructs the orchestration component.
func NewIngestor(deps IngestorDeps) (*Ingestor, error) {
	if deps.Processor == nil {
		return nil, errors.New("ingestor: processor is required")
	}
	in := &Ingestor{
		source:     deps.Source,
		processor:  deps.Processor,
		repository: deps.Repository,
	}
	if deps.Logger != nil {
		in.logger = deps.Logger.With("component", "ingestor")
	}
	return in, nil
}

// RunCycle fetches documents published since the given time, processes them and persists
// every success. A failed save is logged and counted but does not stop the cycle.
func (in *Ingestor) RunCycle(ctx context.Context, since time.Time) (CycleReport, error) {
	var report CycleReport
	if in.source == nil {
		return report, nil
	}

	started := time.Now()
	defer metrics.ObserveCycle(started)

	docs, err := in.source.FetchDocuments(ctx, since)
	if err != nil {
		return report, fmt.Errorf("fetch documents: %w", err)
	}
	report.Fetched = len(docs)
	if len(docs) == 0 {
		in.debug("no new documents", "since", since)
		return report, nil
	}

	result := in.processor.ProcessBatch(ctx, docs)
	report.Succeeded = result.Succeeded
	report.Skipped = result.Skipped
	report.Failed = result.Failed

	if in.repository != nil {
		for _, content := range result.Processed {
			if err := in.repository.SaveProcessed(ctx, *content); err != nil {
				metrics.ObservePersistFailure()
				in.logError("persist content failed", "id", content.ContentID, "url", content.URL, "error", err)
				continue
			}
			report.Persisted++
		}
	}

	in.info("ingest cycle finished",
		"since", since,
		"fetched", report.Fetched,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"persisted", report.Persisted,
		"duration", time.Since(started),
	)
	return report, nil
}

func (in *Ingestor) debug(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Debug(msg, args...)
	}
}

func (in *Ingestor) info(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Info(msg, args...)
	}
}

func (in *Ingestor) logError(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Error(msg, args...)
	}
}
