package driving

import (
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// AskService answers natural-language questions grounded in retrieved
// passages from a selected document subset.
type AskService interface {
	// Ask answers the question using only passages from the given
	// documents. Compound questions are detected and answered
	// per part. When nothing relevant is indexed it returns a
	// deterministic "no relevant information" answer with diagnostic
	// counts and a nil error.
	Ask(ctx context.Context, question string, documentIDs []string) (*domain.Answer, error)
}
