package domain

import "time"

// IngestWarning records a per-document failure during batched
// ingestion. Failures are isolated: one document's warning never
// aborts its batch siblings.
type IngestWarning struct {
	// DocumentID is the document that failed.
	DocumentID string

	// DocumentName is its display name.
	DocumentName string

	// Err is the underlying failure, wrapping one of the sentinel
	// errors (ErrExtraction, ErrEmbeddingService, ...).
	Err error
}

// IngestReport summarises one EnsureProcessed run.
type IngestReport struct {
	// Processed lists document IDs that went through the full
	// extract, chunk, embed, index pipeline.
	Processed []string

	// Skipped lists document IDs that were already indexed
	// (the cache-hit path).
	Skipped []string

	// Warnings aggregates per-document failures.
	Warnings []IngestWarning

	// Duration is the wall-clock time for the whole run.
	Duration time.Duration
}
