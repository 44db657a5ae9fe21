// Package services implements the driving ports on top of the driven
// ones: answering questions over the passage index and orchestrating
// batched ingestion.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/core/ports/driving"
	"github.com/custodia-labs/quire/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// DefaultMaxChunks is the total passage budget per question.
const DefaultMaxChunks = 5

// DefaultTemperature is the sampling temperature for answers.
const DefaultTemperature = 0.7

// NoAnswerText is returned when nothing relevant is indexed for the
// selected documents.
const NoAnswerText = "No relevant information found in the selected documents."

// AskService answers questions grounded in passages retrieved from the
// index. The completion service is optional; without one, answers
// degrade to the raw retrieved passages.
type AskService struct {
	embedder     driven.EmbeddingService
	index        driven.PassageIndex
	completer    driven.CompletionService
	orchestrator driving.IngestOrchestrator
	source       driven.DocumentSource

	maxChunks   int
	temperature float64
	maxTokens   int
}

// AskOption configures the ask service.
type AskOption func(*AskService)

// WithCompletion sets the completion service used to generate answers.
func WithCompletion(c driven.CompletionService) AskOption {
	return func(s *AskService) { s.completer = c }
}

// WithIngestion wires an orchestrator and document source so every ask
// first ensures the selected documents are indexed.
func WithIngestion(o driving.IngestOrchestrator, src driven.DocumentSource) AskOption {
	return func(s *AskService) {
		s.orchestrator = o
		s.source = src
	}
}

// WithMaxChunks sets the total passage budget per question.
func WithMaxChunks(n int) AskOption {
	return func(s *AskService) {
		if n > 0 {
			s.maxChunks = n
		}
	}
}

// WithTemperature sets the completion sampling temperature.
func WithTemperature(t float64) AskOption {
	return func(s *AskService) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithMaxTokens caps the generated answer length per sub-question.
func WithMaxTokens(n int) AskOption {
	return func(s *AskService) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// NewAskService creates an ask service over the given embedder and
// index.
func NewAskService(embedder driven.EmbeddingService, index driven.PassageIndex, opts ...AskOption) *AskService {
	s := &AskService{
		embedder:    embedder,
		index:       index,
		maxChunks:   DefaultMaxChunks,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers the question using only passages from the given
// documents.
func (s *AskService) Ask(ctx context.Context, question string, documentIDs []string) (*domain.Answer, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	documentIDs = dedupe(documentIDs)

	if err := s.ensureSelection(ctx, documentIDs); err != nil {
		return nil, err
	}

	subQuestions := SplitQuestions(question)
	logger.Section("Retrieval")
	logger.Debug("question split into %d part(s)", len(subQuestions))

	perQuestion := s.maxChunks / len(subQuestions)
	if s.maxChunks%len(subQuestions) != 0 {
		perQuestion++
	}

	retrieved := make([][]domain.Retrieved, len(subQuestions))
	total := 0
	for i, sub := range subQuestions {
		vec, err := s.embedder.EmbedOne(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("embed question: %w", err)
		}
		hits, err := s.index.Search(ctx, vec, documentIDs, perQuestion)
		if err != nil {
			return nil, fmt.Errorf("search passages: %w", err)
		}
		logger.Debug("sub-question %d retrieved %d passage(s)", i+1, len(hits))
		retrieved[i] = hits
		total += len(hits)
	}

	meta := domain.AnswerMetadata{
		SubQuestions:       len(subQuestions),
		PassagesUsed:       total,
		DocumentsRequested: len(documentIDs),
	}
	s.fillIndexCounts(ctx, documentIDs, &meta)

	if total == 0 {
		meta.Duration = time.Since(start)
		return &domain.Answer{Text: NoAnswerText, Metadata: meta}, nil
	}

	var answer *domain.Answer
	var err error
	if s.completer == nil {
		answer = s.retrievalOnlyAnswer(subQuestions, retrieved)
	} else {
		answer, err = s.generateAnswer(ctx, subQuestions, retrieved)
		if err != nil {
			return nil, err
		}
	}

	meta.TotalTokens = answer.Metadata.TotalTokens
	meta.Duration = time.Since(start)
	answer.Metadata = meta
	return answer, nil
}

// ensureSelection runs the ingestion pipeline for any selected document
// not yet indexed, when an orchestrator is wired.
func (s *AskService) ensureSelection(ctx context.Context, documentIDs []string) error {
	if s.orchestrator == nil || s.source == nil || len(documentIDs) == 0 {
		return nil
	}

	docs, err := s.source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	selected := make([]domain.Document, 0, len(documentIDs))
	wanted := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		wanted[id] = struct{}{}
	}
	for _, doc := range docs {
		if _, ok := wanted[doc.ID]; ok {
			selected = append(selected, doc)
		}
	}

	report, err := s.orchestrator.EnsureProcessed(ctx, selected)
	if err != nil {
		return fmt.Errorf("ensure processed: %w", err)
	}
	for _, w := range report.Warnings {
		logger.Warn("ingestion of %s failed: %v", w.DocumentName, w.Err)
	}
	return nil
}

func (s *AskService) fillIndexCounts(ctx context.Context, documentIDs []string, meta *domain.AnswerMetadata) {
	for _, id := range documentIDs {
		if s.index.Has(ctx, id) {
			meta.DocumentsIndexed++
		}
	}
	if stats, err := s.index.Stats(ctx); err == nil {
		meta.IndexedPassages = stats.TotalPassages
	}
}

// generateAnswer prompts the completion service once per sub-question
// and joins labelled answers for compound questions.
func (s *AskService) generateAnswer(ctx context.Context, subQuestions []string, retrieved [][]domain.Retrieved) (*domain.Answer, error) {
	answer := &domain.Answer{}
	sections := make([]string, 0, len(subQuestions))

	logger.Section("Generation")
	for i, sub := range subQuestions {
		if len(retrieved[i]) == 0 {
			sections = append(sections, NoAnswerText)
			continue
		}

		result, err := s.completer.Complete(ctx, buildPrompt(sub, retrieved[i]), driven.CompleteOptions{
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("complete sub-question %d: %w", i+1, err)
		}
		sections = append(sections, strings.TrimSpace(result.Text))
		answer.Metadata.TotalTokens += result.PromptTokens + result.CompletionTokens
		answer.Sources = appendSources(answer.Sources, retrieved[i])
	}

	if len(subQuestions) == 1 {
		answer.Text = sections[0]
		return answer, nil
	}

	labelled := make([]string, len(sections))
	for i, section := range sections {
		labelled[i] = fmt.Sprintf("Q%d: %s\n%s", i+1, subQuestions[i], section)
	}
	answer.Text = strings.Join(labelled, "\n\n---\n\n")
	return answer, nil
}

// retrievalOnlyAnswer degrades gracefully when no completion service is
// configured: the retrieved passages become the answer body.
func (s *AskService) retrievalOnlyAnswer(subQuestions []string, retrieved [][]domain.Retrieved) *domain.Answer {
	answer := &domain.Answer{}
	var b strings.Builder
	fmt.Fprintf(&b, "%s; showing the most relevant passages.\n", domain.ErrCompletionUnavailable)
	for i := range subQuestions {
		for _, hit := range retrieved[i] {
			fmt.Fprintf(&b, "\n[Source: %s, page %d]\n%s\n", hit.Passage.DocumentName, hit.Passage.Page, hit.Passage.Text)
		}
		answer.Sources = appendSources(answer.Sources, retrieved[i])
	}
	answer.Text = strings.TrimSpace(b.String())
	return answer
}

// buildPrompt renders the grounding context followed by the question.
// Every passage is prefixed with its attribution so the model can cite
// documents by name.
func buildPrompt(question string, hits []domain.Retrieved) string {
	var b strings.Builder
	b.WriteString("Use only the context below to answer. If the context does not contain the answer, say that the documents do not cover it.\n\nContext:\n")
	for _, hit := range hits {
		fmt.Fprintf(&b, "\n[Source: %s, page %d]\n%s\n", hit.Passage.DocumentName, hit.Passage.Page, hit.Passage.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer:", question)
	return b.String()
}

func appendSources(sources []domain.Source, hits []domain.Retrieved) []domain.Source {
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		seen[src.DocumentName+"\x00"+src.Text] = struct{}{}
	}
	for _, hit := range hits {
		key := hit.Passage.DocumentName + "\x00" + hit.Passage.Text
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, domain.Source{
			DocumentName: hit.Passage.DocumentName,
			Page:         hit.Passage.Page,
			Text:         hit.Passage.Text,
			Similarity:   hit.Similarity,
		})
	}
	return sources
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
