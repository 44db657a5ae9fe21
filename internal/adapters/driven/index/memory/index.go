// Package memory provides an in-memory passage index with brute-force
// cosine similarity search.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/vector"
)

// Ensure Index implements the interface.
var _ driven.PassageIndex = (*Index)(nil)

// DefaultTopK is used when a caller passes a topK below 1.
const DefaultTopK = 5

type entry struct {
	passage domain.EmbeddedPassage
	seq     uint64
}

// Index keys passages by ID with a secondary index from document ID to
// its ordered passage IDs, giving O(passages-in-selected-documents)
// scoped search and O(1) bulk removal per document.
//
// All mutations happen under a single lock section, so a document's
// passage batch becomes visible to searches atomically.
type Index struct {
	mu        sync.RWMutex
	passages  map[string]*entry
	docs      map[string][]string
	dimension int
	nextSeq   uint64
}

// New creates an empty index.
func New() *Index {
	return &Index{
		passages: make(map[string]*entry),
		docs:     make(map[string][]string),
	}
}

// Add inserts every passage by ID and appends it to its document's
// passage list. Re-insertion under an existing ID overwrites in place,
// keeping the original insertion position. The batch is validated as a
// whole before any mutation, so a rejected batch leaves no partial
// document behind and an accepted batch becomes visible at once.
func (x *Index) Add(_ context.Context, passages []domain.EmbeddedPassage) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	dimension := x.dimension
	for i := range passages {
		p := &passages[i]
		if p.ID == "" {
			return fmt.Errorf("%w: passage without id", domain.ErrInvalidInput)
		}
		if dimension == 0 {
			dimension = len(p.Vector)
		} else if len(p.Vector) != dimension {
			return fmt.Errorf("%w: passage %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), dimension)
		}
	}

	for i := range passages {
		p := passages[i]
		if existing, ok := x.passages[p.ID]; ok {
			existing.passage = p
			continue
		}
		x.passages[p.ID] = &entry{passage: p, seq: x.nextSeq}
		x.nextSeq++
		x.docs[p.DocumentID] = append(x.docs[p.DocumentID], p.ID)
	}
	x.dimension = dimension
	return nil
}

// RemoveDocument deletes every passage belonging to the document and
// the document's own entry. Unknown documents are a no-op.
func (x *Index) RemoveDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, id := range x.docs[documentID] {
		delete(x.passages, id)
	}
	delete(x.docs, documentID)

	if len(x.passages) == 0 {
		// Empty index accepts any dimension again.
		x.dimension = 0
	}
	return nil
}

// Search returns the topK passages from the given documents with the
// highest cosine similarity to the query vector, sorted descending,
// ties broken by insertion order. Empty or unindexed selections yield
// an empty result.
func (x *Index) Search(_ context.Context, query []float32, documentIDs []string, topK int) ([]domain.Retrieved, error) {
	if topK < 1 {
		topK = DefaultTopK
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type candidate struct {
		passage    domain.Passage
		similarity float64
		seq        uint64
	}

	var candidates []candidate
	seen := make(map[string]struct{}, len(documentIDs))
	for _, docID := range documentIDs {
		if _, dup := seen[docID]; dup {
			continue
		}
		seen[docID] = struct{}{}

		for _, id := range x.docs[docID] {
			e := x.passages[id]
			sim, err := vector.Cosine(query, e.passage.Vector)
			if err != nil {
				return nil, fmt.Errorf("search %s: %w", id, err)
			}
			candidates = append(candidates, candidate{
				passage:    e.passage.Passage,
				similarity: sim,
				seq:        e.seq,
			})
		}
	}

	// Insertion order first, then a stable sort by score, so equal
	// scores keep insertion order.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]domain.Retrieved, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, domain.Retrieved{Passage: c.passage, Similarity: c.similarity})
	}
	return results, nil
}

// Has reports whether the document has any indexed passages.
func (x *Index) Has(_ context.Context, documentID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs[documentID]) > 0
}

// Stats returns read-only introspection of the index contents.
func (x *Index) Stats(_ context.Context) (domain.IndexStats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	perDoc := make(map[string]int, len(x.docs))
	for docID, ids := range x.docs {
		perDoc[docID] = len(ids)
	}
	return domain.IndexStats{
		TotalPassages:       len(x.passages),
		TotalDocuments:      len(x.docs),
		PassagesPerDocument: perDoc,
	}, nil
}

// Export returns a plain snapshot of every passage in insertion order.
func (x *Index) Export(_ context.Context) (*domain.Snapshot, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	entries := make([]*entry, 0, len(x.passages))
	for _, e := range x.passages {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	snap := &domain.Snapshot{
		Passages: make([]domain.EmbeddedPassage, 0, len(entries)),
	}
	for _, e := range entries {
		snap.Passages = append(snap.Passages, e.passage)
	}
	if len(snap.Passages) > 0 {
		snap.Model = snap.Passages[0].Model
	}
	return snap, nil
}

// Import replaces the index contents with the snapshot.
func (x *Index) Import(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidInput)
	}

	passages := make(map[string]*entry, len(snap.Passages))
	docs := make(map[string][]string)
	dimension := 0
	var seq uint64

	for i := range snap.Passages {
		p := snap.Passages[i]
		if dimension == 0 {
			dimension = len(p.Vector)
		} else if len(p.Vector) != dimension {
			return fmt.Errorf("%w: snapshot passage %s", domain.ErrDimensionMismatch, p.ID)
		}
		if _, ok := passages[p.ID]; ok {
			continue
		}
		passages[p.ID] = &entry{passage: p, seq: seq}
		seq++
		docs[p.DocumentID] = append(docs[p.DocumentID], p.ID)
	}

	// Swap in atomically so a failed import never leaves a partial
	// index behind.
	x.mu.Lock()
	defer x.mu.Unlock()
	x.passages = passages
	x.docs = docs
	x.dimension = dimension
	x.nextSeq = seq
	return nil
}
