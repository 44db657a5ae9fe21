package domain

import "time"

// Document is a source document supplied by the upload/storage
// collaborator. It is read-only once created.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the human-readable display name.
	Name string

	// Data is the raw document bytes.
	Data []byte
}

// Page is an ordered unit of extracted text belonging to one document.
// Pages are produced once by an extractor and never modified.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the raw extracted text for this page.
	Text string
}

// Passage is the atomic retrievable unit: a bounded span of page text.
type Passage struct {
	// ID is deterministic: "{documentID}-page{N}-chunk{K}".
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// DocumentName is the owning document's display name, carried so
	// search results can be attributed without a document lookup.
	DocumentName string

	// Page is the 1-based page number the passage was cut from.
	Page int

	// Text is the passage text, including any overlap seeded from the
	// preceding passage.
	Text string

	// Start and End are the byte offsets of Text within the page,
	// so Text == page.Text[Start:End].
	Start int
	End   int

	// WordCount is the number of whitespace-separated words in Text.
	WordCount int

	// Section is an optional detected section label. Metadata only,
	// never used for ranking.
	Section string
}

// EmbeddedPassage is a passage plus its vector representation.
type EmbeddedPassage struct {
	Passage

	// Vector is the embedding of Text.
	Vector []float32

	// Model identifies the embedding model that produced Vector.
	Model string

	// EmbeddedAt is when the embedding was computed.
	EmbeddedAt time.Time
}

// Retrieved is a single ranked search hit from the passage index.
type Retrieved struct {
	// Passage is the matched passage.
	Passage Passage

	// Similarity is the cosine similarity against the query vector.
	Similarity float64
}

// IndexStats describes the current contents of a passage index.
type IndexStats struct {
	// TotalPassages is the number of passages across all documents.
	TotalPassages int `json:"total_passages"`

	// TotalDocuments is the number of indexed documents.
	TotalDocuments int `json:"total_documents"`

	// PassagesPerDocument maps document ID to its passage count.
	PassagesPerDocument map[string]int `json:"passages_per_document"`
}

// Snapshot is a plain, ordered export of a passage index, suitable for
// external persistence. The index is always rebuildable from source
// documents; a snapshot just avoids re-embedding.
type Snapshot struct {
	// Model is the embedding model the vectors were produced with.
	Model string

	// Passages are every indexed passage in insertion order.
	Passages []EmbeddedPassage
}
