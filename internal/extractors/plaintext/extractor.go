// Package plaintext extracts pages from plain text documents.
package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/extractors/pdf"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor treats document bytes as UTF-8 text. Form feeds mark page
// boundaries; text without any yields a single page.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract splits the text into pages.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document) ([]domain.Page, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if !utf8.Valid(doc.Data) {
		return nil, fmt.Errorf("%w: %s: not valid UTF-8 text", domain.ErrExtraction, doc.Name)
	}
	return pdf.SplitPages(string(doc.Data)), nil
}
