package domain

// OutcomeKind enumerates per-document pipeline results.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// SkipReason explains why a document produced no result.
type SkipReason string

const (
	SkipMissingFields    SkipReason = "missing_fields"
	SkipDuplicateURL     SkipReason = "duplicate_url"
	SkipTooShort         SkipReason = "too_short"
	SkipDuplicateContent SkipReason = "duplicate_content"
	SkipCancelled        SkipReason = "cancelled"
)

// Outcome is the result of running one RawDocument through the pipeline.
type Outcome struct {
	DocumentID string
	Kind       OutcomeKind
	Content    *ProcessedContent
	Reason     SkipReason
	Err        error
}

// Succeeded wraps a processed document.
func Succeeded(id string, content *ProcessedContent) Outcome {
	return Outcome{DocumentID: id, Kind: OutcomeSuccess, Content: content}
}

// Skipped records a non-error rejection.
func Skipped(id string, reason SkipReason) Outcome {
	return Outcome{DocumentID: id, Kind: OutcomeSkipped, Reason: reason}
}

// Failed records an unexpected per-document error.
func Failed(id string, err error) Outcome {
	return Outcome{DocumentID: id, Kind: OutcomeFailed, Err: err}
}
