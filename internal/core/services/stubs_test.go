package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/core/ports/driving"
)

// stubEmbedder returns canned vectors for known texts and a fallback
// vector otherwise. Embed calls are counted and may run a hook, which
// lets tests interleave a removal with an in-flight pipeline.
type stubEmbedder struct {
	vectors map[string][]float32
	dim     int
	calls   atomic.Int64
	onEmbed func()
}

func newStubEmbedder(dim int) *stubEmbedder {
	return &stubEmbedder{vectors: make(map[string][]float32), dim: dim}
}

func (s *stubEmbedder) vectorFor(text string) []float32 {
	if v, ok := s.vectors[text]; ok {
		return v
	}
	v := make([]float32, s.dim)
	v[0] = 1
	return v
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.onEmbed != nil {
		s.onEmbed()
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectorFor(t)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) ModelName() string          { return "stub-embedder" }
func (s *stubEmbedder) Ping(context.Context) error { return nil }
func (s *stubEmbedder) Close() error               { return nil }

// stubCompleter records every prompt and replies with a numbered
// answer.
type stubCompleter struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, _ driven.CompleteOptions) (*driven.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.prompts = append(s.prompts, prompt)
	return &driven.CompletionResult{
		Text:             fmt.Sprintf("answer %d", len(s.prompts)),
		PromptTokens:     10,
		CompletionTokens: 5,
	}, nil
}

func (s *stubCompleter) ModelName() string          { return "stub-completer" }
func (s *stubCompleter) Ping(context.Context) error { return nil }
func (s *stubCompleter) Close() error               { return nil }

// stubExtractor serves one page per document and optionally fails for
// selected documents.
type stubExtractor struct {
	pages map[string]string
	fail  map[string]error
	calls atomic.Int64
}

func newStubExtractor() *stubExtractor {
	return &stubExtractor{pages: make(map[string]string), fail: make(map[string]error)}
}

func (s *stubExtractor) Extract(_ context.Context, doc *domain.Document) ([]domain.Page, error) {
	s.calls.Add(1)
	if err := s.fail[doc.ID]; err != nil {
		return nil, err
	}
	return []domain.Page{{Number: 1, Text: s.pages[doc.ID]}}, nil
}

// stubSource serves a fixed document set.
type stubSource struct {
	docs []domain.Document
}

func (s *stubSource) Documents(context.Context) ([]domain.Document, error) { return s.docs, nil }

func (s *stubSource) Watch(context.Context, func([]domain.Document)) error {
	return domain.ErrInvalidInput
}

func (s *stubSource) Close() error { return nil }

// stubOrchestrator records which documents were ensured.
type stubOrchestrator struct {
	mu      sync.Mutex
	ensured [][]domain.Document
}

func (s *stubOrchestrator) EnsureProcessed(_ context.Context, docs []domain.Document) (*domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, docs)
	return &domain.IngestReport{}, nil
}

func (s *stubOrchestrator) Remove(context.Context, string) error  { return nil }
func (s *stubOrchestrator) Ingesting() bool                       { return false }
func (s *stubOrchestrator) Status() driving.IngestStatus          { return driving.IngestStatus{} }
func (s *stubOrchestrator) Subscribe() <-chan driving.IngestEvent { return nil }
func (s *stubOrchestrator) NotifySelection([]domain.Document)     {}
func (s *stubOrchestrator) Stop()                                 {}
