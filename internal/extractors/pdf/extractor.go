// Package pdf extracts page-ordered text from PDF documents by
// wrapping the poppler pdftotext CLI.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// pdfMagic is the header every well-formed PDF starts with.
const pdfMagic = "%PDF-"

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor converts PDF bytes into pages using pdftotext.
// Page boundaries are the form-feed separators pdftotext emits.
type Extractor struct {
	runner driven.CommandRunner
}

// Option configures the extractor.
type Option func(*Extractor)

// WithRunner substitutes the command runner, used by tests.
func WithRunner(r driven.CommandRunner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// New creates a PDF extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{runner: execRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs pdftotext over the document bytes and splits the
// output into pages. Bytes that are not a well-formed PDF fail with
// domain.ErrExtraction; the failure is not transient and is never
// retried.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(string(doc.Data[:min(len(doc.Data), len(pdfMagic))]), pdfMagic) {
		return nil, fmt.Errorf("%w: %s: missing PDF header", domain.ErrExtraction, doc.Name)
	}

	// pdftotext reads from a file, so stage the bytes in a temp file.
	tmp, err := os.CreateTemp("", "quire-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(doc.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmpPath, "-")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, doc.Name, err)
	}

	return SplitPages(string(out)), nil
}

// SplitPages cuts pdftotext output on form-feed page separators.
// A trailing empty page (pdftotext ends output with a form feed) is
// dropped, but interior blank pages keep their position so page
// numbers stay faithful to the source document.
func SplitPages(text string) []domain.Page {
	parts := strings.Split(text, "\f")
	for len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]domain.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, domain.Page{Number: i + 1, Text: part})
	}
	return pages
}
