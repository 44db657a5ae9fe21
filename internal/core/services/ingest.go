package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/quire/internal/chunker"
	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/core/ports/driving"
	"github.com/custodia-labs/quire/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestOrchestrator = (*IngestService)(nil)

// DefaultBatchSize is how many documents are ingested concurrently.
const DefaultBatchSize = 3

// DefaultBatchDelay is the pause between document batches, protecting
// the embedding service from sustained bursts.
const DefaultBatchDelay = 500 * time.Millisecond

// DefaultDebounce is how long selection changes are coalesced before a
// background ingestion run starts.
const DefaultDebounce = time.Second

const eventBuffer = 64

// IngestService drives documents through the extract, chunk, embed,
// index pipeline in throttled batches of concurrent workers.
//
// Each document carries a generation counter. Remove bumps it, and a
// pipeline run that started under an older generation discards its
// result instead of indexing, so a removal always wins over an
// in-flight ingestion of the same document.
type IngestService struct {
	extractor driven.Extractor
	chunker   *chunker.Chunker
	embedder  driven.EmbeddingService
	index     driven.PassageIndex

	batchSize  int
	batchDelay time.Duration
	debounce   time.Duration

	mu          sync.Mutex
	generations map[string]uint64
	running     bool
	processed   int
	total       int
	subscribers []chan driving.IngestEvent
	timer       *time.Timer
	stopped     bool

	bg     sync.WaitGroup
	bgCtx  context.Context
	cancel context.CancelFunc
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithBatchSize sets the number of documents ingested concurrently.
func WithBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between document batches.
func WithBatchDelay(d time.Duration) IngestOption {
	return func(s *IngestService) {
		if d >= 0 {
			s.batchDelay = d
		}
	}
}

// WithDebounce sets the selection-change coalescing window.
func WithDebounce(d time.Duration) IngestOption {
	return func(s *IngestService) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// NewIngestService creates an orchestrator over the given pipeline
// stages.
func NewIngestService(extractor driven.Extractor, ch *chunker.Chunker, embedder driven.EmbeddingService, index driven.PassageIndex, opts ...IngestOption) *IngestService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &IngestService{
		extractor:   extractor,
		chunker:     ch,
		embedder:    embedder,
		index:       index,
		batchSize:   DefaultBatchSize,
		batchDelay:  DefaultBatchDelay,
		debounce:    DefaultDebounce,
		generations: make(map[string]uint64),
		bgCtx:       ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureProcessed runs the pipeline for every document not already in
// the index. Already-indexed documents are skipped. Documents are
// processed in concurrent batches with a pause between batches, and
// per-document failures land in the report's warnings without aborting
// the run.
func (s *IngestService) EnsureProcessed(ctx context.Context, docs []domain.Document) (*domain.IngestReport, error) {
	start := time.Now()
	report := &domain.IngestReport{}

	var pending []domain.Document
	for _, doc := range docs {
		if s.index.Has(ctx, doc.ID) {
			report.Skipped = append(report.Skipped, doc.ID)
			s.emit(driving.IngestEvent{Phase: driving.PhaseSkip, DocumentID: doc.ID})
			continue
		}
		pending = append(pending, doc)
	}

	s.beginRun(len(pending))
	defer s.endRun()

	logger.Section("Ingestion")
	logger.Info("%d document(s) to process, %d already indexed", len(pending), len(report.Skipped))

	var reportMu sync.Mutex
	for batchStart := 0; batchStart < len(pending); batchStart += s.batchSize {
		batchEnd := batchStart + s.batchSize
		if batchEnd > len(pending) {
			batchEnd = len(pending)
		}

		var wg sync.WaitGroup
		for _, doc := range pending[batchStart:batchEnd] {
			wg.Add(1)
			go func(doc domain.Document) {
				defer wg.Done()
				err := s.ingestOne(ctx, doc)

				reportMu.Lock()
				if err != nil {
					report.Warnings = append(report.Warnings, domain.IngestWarning{
						DocumentID:   doc.ID,
						DocumentName: doc.Name,
						Err:          err,
					})
				} else {
					report.Processed = append(report.Processed, doc.ID)
				}
				reportMu.Unlock()

				if err != nil {
					logger.Warn("ingesting %s: %v", doc.Name, err)
					s.emitProgress(driving.PhaseError, doc.ID)
				} else {
					s.advance()
					s.emitProgress(driving.PhaseDone, doc.ID)
				}
			}(doc)
		}
		wg.Wait()

		if batchEnd < len(pending) {
			select {
			case <-ctx.Done():
				report.Duration = time.Since(start)
				return report, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
	}

	report.Duration = time.Since(start)
	s.emit(driving.IngestEvent{Phase: driving.PhaseDone, Processed: len(report.Processed), Total: len(pending)})
	return report, nil
}

// ingestOne runs one document through the full pipeline. The result is
// discarded when the document was removed while the pipeline ran.
func (s *IngestService) ingestOne(ctx context.Context, doc domain.Document) error {
	gen := s.generation(doc.ID)

	s.emitProgress(driving.PhaseExtract, doc.ID)
	pages, err := s.extractor.Extract(ctx, &doc)
	if err != nil {
		return err
	}

	s.emitProgress(driving.PhaseChunk, doc.ID)
	passages := s.chunker.ChunkPages(doc.ID, doc.Name, pages)
	if len(passages) == 0 {
		logger.Debug("%s produced no passages", doc.Name)
		return nil
	}

	s.emitProgress(driving.PhaseEmbed, doc.ID)
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d passage(s): %w", len(passages), err)
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("%w: got %d vectors for %d passages",
			domain.ErrEmbeddingService, len(vectors), len(passages))
	}

	embedded := make([]domain.EmbeddedPassage, len(passages))
	now := time.Now()
	model := s.embedder.ModelName()
	for i := range passages {
		embedded[i] = domain.EmbeddedPassage{
			Passage:    passages[i],
			Vector:     vectors[i],
			Model:      model,
			EmbeddedAt: now,
		}
	}

	if s.generation(doc.ID) != gen {
		logger.Debug("%s was removed during ingestion, discarding result", doc.Name)
		return nil
	}
	s.emitProgress(driving.PhaseIndex, doc.ID)
	return s.index.Add(ctx, embedded)
}

// Remove deletes the document's passages and invalidates any in-flight
// ingestion of the same document.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	s.mu.Lock()
	s.generations[documentID]++
	s.mu.Unlock()
	return s.index.RemoveDocument(ctx, documentID)
}

// Ingesting reports whether an ingestion run is currently active.
func (s *IngestService) Ingesting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the current run's progress.
func (s *IngestService) Status() driving.IngestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return driving.IngestStatus{Running: s.running, Processed: s.processed, Total: s.total}
}

// Subscribe returns a channel of progress events. Events are dropped
// rather than delivered late when the subscriber falls behind.
func (s *IngestService) Subscribe() <-chan driving.IngestEvent {
	ch := make(chan driving.IngestEvent, eventBuffer)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// NotifySelection schedules EnsureProcessed for the documents after the
// debounce window. A newer notification replaces a pending one, so a
// burst of selection changes triggers a single run.
func (s *IngestService) NotifySelection(docs []domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.bg.Add(1)
		s.mu.Unlock()
		defer s.bg.Done()

		if _, err := s.EnsureProcessed(s.bgCtx, docs); err != nil {
			logger.Error("background ingestion: %v", err)
		}
	})
}

// Stop cancels the pending debounce trigger and waits for background
// runs to finish.
func (s *IngestService) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.bg.Wait()
}

func (s *IngestService) generation(documentID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[documentID]
}

func (s *IngestService) beginRun(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.processed = 0
	s.total = total
}

func (s *IngestService) endRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *IngestService) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
}

func (s *IngestService) emitProgress(phase driving.IngestPhase, documentID string) {
	status := s.Status()
	s.emit(driving.IngestEvent{
		Phase:      phase,
		DocumentID: documentID,
		Processed:  status.Processed,
		Total:      status.Total,
	})
}

func (s *IngestService) emit(ev driving.IngestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
