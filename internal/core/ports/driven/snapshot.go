package driven

import (
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// SnapshotStore persists passage index snapshots. Persistence is
// optional: the index is always rebuildable from source documents.
type SnapshotStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load returns the stored snapshot, or domain.ErrNotFound when
	// nothing has been saved.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Close releases resources.
	Close() error
}
