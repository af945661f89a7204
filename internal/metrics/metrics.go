package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ContentDigest/internal/domain"
)

const namespace = "content_digest"

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents run through the processing pipeline by outcome",
		},
		[]string{"outcome", "reason"},
	)

	dedupHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_hits_total",
			Help:      "Documents rejected by the dedup cache",
		},
		[]string{"namespace"},
	)

	dedupErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_errors_total",
			Help:      "Dedup cache calls that failed and were skipped",
		},
		[]string{"op"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of single-document pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"stage"},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Documents per processing batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of fetch, process and persist cycles",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	persistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Processed documents that could not be saved",
		},
	)

	collectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collected_documents_total",
			Help:      "Raw documents returned by site collectors",
		},
		[]string{"site"},
	)

	siteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_failures_total",
			Help:      "Site scans that returned an error",
		},
		[]string{"site"},
	)

	summarizerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizer_calls_total",
			Help:      "Text generation calls by status",
		},
		[]string{"status"},
	)
)

// ObserveOutcome counts one per-document result.
func ObserveOutcome(o domain.Outcome) {
	documentsTotal.WithLabelValues(string(o.Kind), string(o.Reason)).Inc()
}

// ObserveDedupHit counts a rejection in the given key namespace.
func ObserveDedupHit(ns string) {
	dedupHitsTotal.WithLabelValues(ns).Inc()
}

// ObserveDedupError counts a failed cache call.
func ObserveDedupError(op string) {
	dedupErrorsTotal.WithLabelValues(op).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, started time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// ObserveBatch records the size of a processing batch.
func ObserveBatch(size int) {
	batchSize.Observe(float64(size))
}

// ObserveCycle records the duration of one ingest cycle.
func ObserveCycle(started time.Time) {
	cycleDuration.Observe(time.Since(started).Seconds())
}

// ObservePersistFailure counts a failed repository save.
func ObservePersistFailure() {
	persistFailuresTotal.Inc()
}

// ObserveSummarizer counts a text generation call; status is ok, error, timeout or absent.
func ObserveSummarizer(status string) {
	summarizerCallsTotal.WithLabelValues(status).Inc()
}

// ObserveCollected counts documents produced by one site scan.
func ObserveCollected(site string, n int) {
	collectedTotal.WithLabelValues(site).Add(float64(n))
}

// ObserveSiteFailure counts a failed site scan.
func ObserveSiteFailure(site string) {
	siteFailuresTotal.WithLabelValues(site).Inc()
}
