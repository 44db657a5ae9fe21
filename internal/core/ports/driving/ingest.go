package driving

import (
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// IngestPhase identifies a stage of the ingestion pipeline in events.
type IngestPhase string

// Ingestion phases, in pipeline order.
const (
	PhaseSkip    IngestPhase = "skip"
	PhaseExtract IngestPhase = "extract"
	PhaseChunk   IngestPhase = "chunk"
	PhaseEmbed   IngestPhase = "embed"
	PhaseIndex   IngestPhase = "index"
	PhaseError   IngestPhase = "error"
	PhaseDone    IngestPhase = "done"
)

// IngestEvent is a progress notification for UI feedback.
type IngestEvent struct {
	// Phase is the pipeline stage the event reports.
	Phase IngestPhase

	// DocumentID is the document the event concerns; empty for the
	// run-level "done" event.
	DocumentID string

	// Processed and Total track run progress in documents.
	Processed int
	Total     int
}

// IngestStatus is a point-in-time snapshot of ingestion progress.
type IngestStatus struct {
	// Running reports whether an ingestion run is in flight.
	Running bool

	// Processed and Total track the current run in documents.
	Processed int
	Total     int
}

// IngestOrchestrator drives documents through the extract, chunk,
// embed, index pipeline in throttled batches.
type IngestOrchestrator interface {
	// EnsureProcessed runs the pipeline for every document not already
	// present in the passage index. Already-indexed documents are
	// skipped entirely. Per-document failures are isolated and
	// aggregated into the report's warnings.
	EnsureProcessed(ctx context.Context, docs []domain.Document) (*domain.IngestReport, error)

	// Remove deletes a document's passages from the index and
	// invalidates any in-flight ingestion of the same document.
	Remove(ctx context.Context, documentID string) error

	// Ingesting reports whether an ingestion run is currently active.
	Ingesting() bool

	// Status returns a snapshot of the current run's progress.
	Status() IngestStatus

	// Subscribe returns a channel of progress events. Slow consumers
	// miss events rather than blocking ingestion.
	Subscribe() <-chan IngestEvent

	// NotifySelection schedules EnsureProcessed for the given
	// documents after a debounce window, so rapid selection changes
	// trigger a single run.
	NotifySelection(docs []domain.Document)

	// Stop cancels the pending debounce trigger and waits for any
	// background run started by it to finish.
	Stop()
}
