package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quire/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/quire/internal/chunker"
	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driving"
)

func newTestIngest(t *testing.T, extractor *stubExtractor, embedder *stubEmbedder, idx *memory.Index, opts ...IngestOption) *IngestService {
	t.Helper()
	opts = append([]IngestOption{WithBatchDelay(0), WithDebounce(5 * time.Millisecond)}, opts...)
	svc := NewIngestService(extractor, chunker.New(), embedder, idx, opts...)
	t.Cleanup(svc.Stop)
	return svc
}

func TestEnsureProcessed_Pipeline(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Alpha beta gamma. Delta epsilon."
	idx := memory.New()
	svc := newTestIngest(t, extractor, newStubEmbedder(3), idx)

	report, err := svc.EnsureProcessed(context.Background(), []domain.Document{{ID: "a", Name: "A"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, report.Processed)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Warnings)
	assert.True(t, idx.Has(context.Background(), "a"))
	assert.Greater(t, report.Duration, time.Duration(0))
}

func TestEnsureProcessed_SkipsIndexed(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Some text."
	idx := memory.New()
	svc := newTestIngest(t, extractor, newStubEmbedder(3), idx)
	ctx := context.Background()

	_, err := svc.EnsureProcessed(ctx, []domain.Document{{ID: "a", Name: "A"}})
	require.NoError(t, err)
	firstCalls := extractor.calls.Load()

	report, err := svc.EnsureProcessed(ctx, []domain.Document{{ID: "a", Name: "A"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Skipped)
	assert.Empty(t, report.Processed)
	assert.Equal(t, firstCalls, extractor.calls.Load(), "pipeline must not rerun for an indexed document")
}

func TestEnsureProcessed_FailureIsolation(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["good"] = "Readable text."
	extractor.fail["bad"] = domain.ErrExtraction
	idx := memory.New()
	svc := newTestIngest(t, extractor, newStubEmbedder(3), idx, WithBatchSize(1))

	report, err := svc.EnsureProcessed(context.Background(), []domain.Document{
		{ID: "bad", Name: "Bad"},
		{ID: "good", Name: "Good"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"good"}, report.Processed)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "bad", report.Warnings[0].DocumentID)
	assert.ErrorIs(t, report.Warnings[0].Err, domain.ErrExtraction)
	assert.True(t, idx.Has(context.Background(), "good"))
	assert.False(t, idx.Has(context.Background(), "bad"))
}

func TestEnsureProcessed_EmptyDocument(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["empty"] = "   \n  "
	idx := memory.New()
	svc := newTestIngest(t, extractor, newStubEmbedder(3), idx)

	report, err := svc.EnsureProcessed(context.Background(), []domain.Document{{ID: "empty", Name: "Empty"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"empty"}, report.Processed)
	assert.False(t, idx.Has(context.Background(), "empty"))
}

func TestRemove_WinsOverInFlightIngestion(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Some text worth indexing."
	idx := memory.New()
	embedder := newStubEmbedder(3)

	svc := newTestIngest(t, extractor, embedder, idx)

	// Remove lands while the pipeline is mid-embed; the stale result
	// must be discarded instead of indexed.
	embedder.onEmbed = func() {
		require.NoError(t, svc.Remove(context.Background(), "a"))
	}

	report, err := svc.EnsureProcessed(context.Background(), []domain.Document{{ID: "a", Name: "A"}})
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	assert.False(t, idx.Has(context.Background(), "a"))
}

func TestRemove_DeletesFromIndex(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Some text."
	idx := memory.New()
	svc := newTestIngest(t, extractor, newStubEmbedder(3), idx)
	ctx := context.Background()

	_, err := svc.EnsureProcessed(ctx, []domain.Document{{ID: "a", Name: "A"}})
	require.NoError(t, err)
	require.True(t, idx.Has(ctx, "a"))

	require.NoError(t, svc.Remove(ctx, "a"))
	assert.False(t, idx.Has(ctx, "a"))
}

func TestSubscribe_ReceivesPhaseEvents(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Some text."
	svc := newTestIngest(t, extractor, newStubEmbedder(3), memory.New())

	events := svc.Subscribe()

	_, err := svc.EnsureProcessed(context.Background(), []domain.Document{{ID: "a", Name: "A"}})
	require.NoError(t, err)

	seen := make(map[driving.IngestPhase]bool)
drain:
	for {
		select {
		case ev := <-events:
			seen[ev.Phase] = true
		default:
			break drain
		}
	}
	assert.True(t, seen[driving.PhaseExtract])
	assert.True(t, seen[driving.PhaseChunk])
	assert.True(t, seen[driving.PhaseEmbed])
	assert.True(t, seen[driving.PhaseIndex])
	assert.True(t, seen[driving.PhaseDone])
}

func TestStatus_IdleByDefault(t *testing.T) {
	svc := newTestIngest(t, newStubExtractor(), newStubEmbedder(3), memory.New())

	assert.False(t, svc.Ingesting())
	status := svc.Status()
	assert.False(t, status.Running)
	assert.Zero(t, status.Processed)
}

func TestNotifySelection_DebouncesToOneRun(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Some text."
	idx := memory.New()
	svc := newTestIngest(t, extractor, newStubEmbedder(3), idx)

	docs := []domain.Document{{ID: "a", Name: "A"}}
	svc.NotifySelection(docs)
	svc.NotifySelection(docs)
	svc.NotifySelection(docs)

	require.Eventually(t, func() bool {
		return idx.Has(context.Background(), "a")
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, extractor.calls.Load(), "burst of notifications must coalesce into one run")
}

func TestStop_CancelsPendingTrigger(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "Some text."
	svc := NewIngestService(extractor, chunker.New(), newStubEmbedder(3), memory.New(),
		WithBatchDelay(0), WithDebounce(50*time.Millisecond))

	svc.NotifySelection([]domain.Document{{ID: "a", Name: "A"}})
	svc.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, extractor.calls.Load())
}

func TestEnsureProcessed_ContextCancelledBetweenBatches(t *testing.T) {
	extractor := newStubExtractor()
	extractor.pages["a"] = "One."
	extractor.pages["b"] = "Two."
	svc := NewIngestService(extractor, chunker.New(), newStubEmbedder(3), memory.New(),
		WithBatchSize(1), WithBatchDelay(time.Hour))
	t.Cleanup(svc.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := svc.EnsureProcessed(ctx, []domain.Document{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
	})
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"a"}, report.Processed)
}
