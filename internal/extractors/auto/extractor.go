// Package auto dispatches extraction by sniffing the document bytes.
package auto

import (
	"bytes"
	"context"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/extractors/pdf"
	"github.com/custodia-labs/quire/internal/extractors/plaintext"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var pdfHeader = []byte("%PDF-")

// Extractor routes PDFs to the pdf extractor and everything else to
// the plain text extractor.
type Extractor struct {
	pdf   driven.Extractor
	plain driven.Extractor
}

// New creates an auto-dispatching extractor.
func New() *Extractor {
	return &Extractor{
		pdf:   pdf.New(),
		plain: plaintext.New(),
	}
}

// NewWith creates an auto extractor with explicit delegates, used by
// tests.
func NewWith(pdfExtractor, plainExtractor driven.Extractor) *Extractor {
	return &Extractor{pdf: pdfExtractor, plain: plainExtractor}
}

// Extract sniffs the bytes and delegates.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error) {
	if doc != nil && bytes.HasPrefix(doc.Data, pdfHeader) {
		return e.pdf.Extract(ctx, doc)
	}
	return e.plain.Extract(ctx, doc)
}
