package driven

import (
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// DocumentSource supplies raw documents from the storage collaborator.
// The core only requires {id, name, bytes}.
type DocumentSource interface {
	// Documents returns the currently available documents.
	Documents(ctx context.Context) ([]domain.Document, error)

	// Watch invokes onChange with the refreshed document set whenever
	// the underlying source changes, until ctx is cancelled. Sources
	// that cannot watch return domain.ErrInvalidInput.
	Watch(ctx context.Context, onChange func([]domain.Document)) error

	// Close releases resources.
	Close() error
}
