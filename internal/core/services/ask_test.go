package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quire/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/quire/internal/core/domain"
)

func indexPassage(t *testing.T, idx *memory.Index, docID, docName string, page, seq int, text string, vec []float32) {
	t.Helper()
	require.NoError(t, idx.Add(context.Background(), []domain.EmbeddedPassage{{
		Passage: domain.Passage{
			ID:           passageID(docID, page, seq),
			DocumentID:   docID,
			DocumentName: docName,
			Page:         page,
			Text:         text,
		},
		Vector:     vec,
		Model:      "stub-embedder",
		EmbeddedAt: time.Now(),
	}}))
}

func passageID(docID string, page, seq int) string {
	return fmt.Sprintf("%s-page%d-chunk%d", docID, page, seq)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := NewAskService(newStubEmbedder(2), memory.New())

	_, err := svc.Ask(context.Background(), "   ", []string{"a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAsk_NothingIndexed(t *testing.T) {
	embedder := newStubEmbedder(2)
	svc := NewAskService(embedder, memory.New(), WithCompletion(&stubCompleter{}))

	answer, err := svc.Ask(context.Background(), "What is the refund policy?", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, NoAnswerText, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 2, answer.Metadata.DocumentsRequested)
	assert.Zero(t, answer.Metadata.DocumentsIndexed)
	assert.Zero(t, answer.Metadata.IndexedPassages)
	assert.Equal(t, 1, answer.Metadata.SubQuestions)
}

func TestAsk_SingleQuestion(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "Install the unit upright.", []float32{0, 1})
	indexPassage(t, idx, "a", "Manual", 2, 0, "The warranty lasts two years.", []float32{1, 0})

	embedder := newStubEmbedder(2)
	embedder.vectors["How long is the warranty?"] = []float32{1, 0.1}

	completer := &stubCompleter{}
	svc := NewAskService(embedder, idx, WithCompletion(completer), WithMaxChunks(1))

	answer, err := svc.Ask(context.Background(), "How long is the warranty?", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "answer 1", answer.Text)

	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Manual", answer.Sources[0].DocumentName)
	assert.Equal(t, 2, answer.Sources[0].Page)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "[Source: Manual, page 2]")
	assert.Contains(t, completer.prompts[0], "The warranty lasts two years.")
	assert.Contains(t, completer.prompts[0], "Question: How long is the warranty?")

	assert.Equal(t, 1, answer.Metadata.SubQuestions)
	assert.Equal(t, 1, answer.Metadata.PassagesUsed)
	assert.Equal(t, 15, answer.Metadata.TotalTokens)
	assert.Equal(t, 1, answer.Metadata.DocumentsIndexed)
	assert.Equal(t, 2, answer.Metadata.IndexedPassages)
	assert.Greater(t, answer.Metadata.Duration, time.Duration(0))
}

func TestAsk_CompoundQuestion(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "The warranty lasts two years.", []float32{1, 0})
	indexPassage(t, idx, "a", "Manual", 3, 0, "Claims are filed online.", []float32{0, 1})

	embedder := newStubEmbedder(2)
	embedder.vectors["How long is the warranty?"] = []float32{1, 0}
	embedder.vectors["How do I file a claim?"] = []float32{0, 1}

	completer := &stubCompleter{}
	svc := NewAskService(embedder, idx, WithCompletion(completer), WithMaxChunks(2))

	answer, err := svc.Ask(context.Background(), "How long is the warranty? How do I file a claim?", []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, 2, answer.Metadata.SubQuestions)
	assert.Contains(t, answer.Text, "Q1: How long is the warranty?")
	assert.Contains(t, answer.Text, "Q2: How do I file a claim?")
	assert.Contains(t, answer.Text, "\n\n---\n\n")
	assert.Len(t, completer.prompts, 2)
	assert.Equal(t, 30, answer.Metadata.TotalTokens)
}

func TestAsk_ScopedToSelection(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "Alpha text.", []float32{1, 0})
	indexPassage(t, idx, "b", "Appendix", 1, 0, "Beta text.", []float32{1, 0})

	completer := &stubCompleter{}
	svc := NewAskService(newStubEmbedder(2), idx, WithCompletion(completer))

	answer, err := svc.Ask(context.Background(), "What does it say?", []string{"a"})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Manual", answer.Sources[0].DocumentName)
	assert.NotContains(t, completer.prompts[0], "Beta text.")
}

func TestAsk_RetrievalOnlyWithoutCompletion(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "The warranty lasts two years.", []float32{1, 0})

	svc := NewAskService(newStubEmbedder(2), idx)

	answer, err := svc.Ask(context.Background(), "How long is the warranty?", []string{"a"})
	require.NoError(t, err)
	assert.Contains(t, answer.Text, domain.ErrCompletionUnavailable.Error())
	assert.Contains(t, answer.Text, "The warranty lasts two years.")
	require.Len(t, answer.Sources, 1)
	assert.Zero(t, answer.Metadata.TotalTokens)
}

func TestAsk_CompletionErrorPropagates(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "Some text.", []float32{1, 0})

	completer := &stubCompleter{err: domain.ErrCompletionService}
	svc := NewAskService(newStubEmbedder(2), idx, WithCompletion(completer))

	_, err := svc.Ask(context.Background(), "Anything?", []string{"a"})
	assert.ErrorIs(t, err, domain.ErrCompletionService)
}

func TestAsk_EnsuresSelectionProcessed(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "Some text.", []float32{1, 0})

	orch := &stubOrchestrator{}
	source := &stubSource{docs: []domain.Document{
		{ID: "a", Name: "Manual"},
		{ID: "b", Name: "Unselected"},
	}}
	svc := NewAskService(newStubEmbedder(2), idx,
		WithCompletion(&stubCompleter{}),
		WithIngestion(orch, source),
	)

	_, err := svc.Ask(context.Background(), "Anything?", []string{"a"})
	require.NoError(t, err)

	require.Len(t, orch.ensured, 1)
	require.Len(t, orch.ensured[0], 1)
	assert.Equal(t, "a", orch.ensured[0][0].ID)
}

func TestAsk_DuplicateSelectionCollapsed(t *testing.T) {
	idx := memory.New()
	indexPassage(t, idx, "a", "Manual", 1, 0, "Some text.", []float32{1, 0})

	svc := NewAskService(newStubEmbedder(2), idx, WithCompletion(&stubCompleter{}))

	answer, err := svc.Ask(context.Background(), "Anything?", []string{"a", "a", "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, answer.Metadata.DocumentsRequested)
	assert.Len(t, answer.Sources, 1)
}
