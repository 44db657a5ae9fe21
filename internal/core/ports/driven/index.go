package driven

import (
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// PassageIndex maps documents to their embedded passages and supports
// nearest-neighbour search scoped to a document subset.
//
// Add and RemoveDocument are the only mutations and each is atomic:
// a concurrent Search never observes a partially-added document.
type PassageIndex interface {
	// Add inserts every passage by ID and appends it to its document's
	// passage list. Re-insertion under an existing ID overwrites in
	// place. The whole batch becomes visible at once.
	Add(ctx context.Context, passages []domain.EmbeddedPassage) error

	// RemoveDocument deletes every passage belonging to the document
	// and the document's own entry. Removing an unknown document is a
	// no-op.
	RemoveDocument(ctx context.Context, documentID string) error

	// Search returns the topK passages from the given documents with
	// the highest cosine similarity to the query vector, sorted
	// descending, ties broken by insertion order. An empty document
	// set or unknown documents yield an empty result, not an error.
	// topK values below 1 fall back to the default of 5.
	Search(ctx context.Context, query []float32, documentIDs []string, topK int) ([]domain.Retrieved, error)

	// Has reports whether the document has any indexed passages.
	// This is the cheap membership check behind the ingestion
	// cache-hit path.
	Has(ctx context.Context, documentID string) bool

	// Stats returns read-only introspection of the index contents,
	// always consistent with the current state.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Export returns a plain snapshot of the index in insertion order.
	Export(ctx context.Context) (*domain.Snapshot, error)

	// Import replaces the index contents with the snapshot.
	Import(ctx context.Context, snap *domain.Snapshot) error
}
