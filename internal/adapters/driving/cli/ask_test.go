package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quire/internal/core/domain"
)

type mockAskService struct {
	answer       *domain.Answer
	err          error
	lastQuestion string
	lastIDs      []string
	onAsk        func()
}

func (m *mockAskService) Ask(_ context.Context, question string, documentIDs []string) (*domain.Answer, error) {
	m.lastQuestion = question
	m.lastIDs = documentIDs
	if m.onAsk != nil {
		m.onAsk()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockDocSource struct {
	docs []domain.Document
	err  error
}

func (m *mockDocSource) Documents(context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocSource) Watch(context.Context, func([]domain.Document)) error {
	return domain.ErrInvalidInput
}

func (m *mockDocSource) Close() error { return nil }

func withMockServices(t *testing.T, ask *mockAskService, source *mockDocSource) {
	t.Helper()
	oldAsk, oldSource := askService, docSource
	askService, docSource = ask, source
	t.Cleanup(func() {
		askService, docSource = oldAsk, oldSource
		askDocs = nil
		askJSON = false
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func sampleAnswer() *domain.Answer {
	return &domain.Answer{
		Text: "The warranty lasts two years.",
		Sources: []domain.Source{
			{DocumentName: "manual.pdf", Page: 2, Text: "The warranty lasts two years.", Similarity: 0.91},
		},
		Metadata: domain.AnswerMetadata{PassagesUsed: 1, SubQuestions: 1},
	}
}

func TestAskCmd_TextOutput(t *testing.T) {
	ask := &mockAskService{answer: sampleAnswer()}
	source := &mockDocSource{docs: []domain.Document{{ID: "doc-1", Name: "manual.pdf"}}}
	withMockServices(t, ask, source)

	out, err := execute(t, "ask", "How long is the warranty?")
	require.NoError(t, err)

	assert.Contains(t, out, "The warranty lasts two years.")
	assert.Contains(t, out, "manual.pdf, page 2 (0.91)")
	assert.Equal(t, "How long is the warranty?", ask.lastQuestion)
	assert.Equal(t, []string{"doc-1"}, ask.lastIDs)
}

func TestAskCmd_JSONOutput(t *testing.T) {
	ask := &mockAskService{answer: sampleAnswer()}
	source := &mockDocSource{docs: []domain.Document{{ID: "doc-1", Name: "manual.pdf"}}}
	withMockServices(t, ask, source)

	out, err := execute(t, "ask", "How long is the warranty?", "--json")
	require.NoError(t, err)

	assert.Contains(t, out, "\"text\"")
	assert.Contains(t, out, "\"document_name\"")
	assert.Contains(t, out, "\"similarity\"")
}

func TestAskCmd_DocSelection(t *testing.T) {
	ask := &mockAskService{answer: sampleAnswer()}
	source := &mockDocSource{docs: []domain.Document{
		{ID: "doc-1", Name: "manual.pdf"},
		{ID: "doc-2", Name: "appendix.pdf"},
	}}
	withMockServices(t, ask, source)

	_, err := execute(t, "ask", "Anything?", "--doc", "appendix.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-2"}, ask.lastIDs)
}

func TestAskCmd_UnknownDocument(t *testing.T) {
	ask := &mockAskService{answer: sampleAnswer()}
	source := &mockDocSource{docs: []domain.Document{{ID: "doc-1", Name: "manual.pdf"}}}
	withMockServices(t, ask, source)

	_, err := execute(t, "ask", "Anything?", "--doc", "ghost.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAskCmd_NoDocuments(t *testing.T) {
	withMockServices(t, &mockAskService{}, &mockDocSource{})

	_, err := execute(t, "ask", "Anything?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents available")
}

func TestAskCmd_CompletionFailureApologises(t *testing.T) {
	ask := &mockAskService{err: domain.ErrCompletionService}
	source := &mockDocSource{docs: []domain.Document{{ID: "doc-1", Name: "manual.pdf"}}}
	withMockServices(t, ask, source)

	out, err := execute(t, "ask", "Anything?")
	require.NoError(t, err)
	assert.Contains(t, out, "Sorry, I could not generate an answer")
}

func TestAskCmd_ServiceError(t *testing.T) {
	ask := &mockAskService{err: errors.New("embedding service down")}
	source := &mockDocSource{docs: []domain.Document{{ID: "doc-1", Name: "manual.pdf"}}}
	withMockServices(t, ask, source)

	_, err := execute(t, "ask", "Anything?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service down")
}
