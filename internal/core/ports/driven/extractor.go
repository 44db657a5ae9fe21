package driven

import (
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// Extractor converts raw document bytes into page-ordered plain text.
// Malformed input fails with an error wrapping domain.ErrExtraction and
// is never retried.
type Extractor interface {
	// Extract produces the document's pages in order, with 1-based
	// page numbers. The total page count is len of the result.
	Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error)
}

// CommandRunner executes an external command and returns its combined
// output. Extractors that wrap CLI tools take one so tests can
// substitute a mock.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
