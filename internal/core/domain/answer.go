package domain

import "time"

// Source attributes part of an answer to a specific passage.
type Source struct {
	// DocumentName is the display name of the source document.
	DocumentName string `json:"document_name"`

	// Page is the 1-based page number the passage came from.
	Page int `json:"page"`

	// Text is the passage text supplied to the completion service.
	Text string `json:"text"`

	// Similarity is the retrieval score for this passage.
	Similarity float64 `json:"similarity"`
}

// AnswerMetadata carries timing and usage information for an answer.
type AnswerMetadata struct {
	// Duration is the total wall-clock time spent answering.
	Duration time.Duration `json:"duration"`

	// PassagesUsed is the total number of passages across all
	// sub-questions supplied as grounding context.
	PassagesUsed int `json:"passages_used"`

	// SubQuestions is the number of independent questions detected.
	SubQuestions int `json:"sub_questions"`

	// TotalTokens is the summed token usage reported by the
	// completion service, when available.
	TotalTokens int `json:"total_tokens"`

	// DocumentsRequested is how many documents the query was scoped to.
	DocumentsRequested int `json:"documents_requested"`

	// DocumentsIndexed is how many of those were present in the index
	// at query time.
	DocumentsIndexed int `json:"documents_indexed"`

	// IndexedPassages is the total passage count in the index at
	// query time.
	IndexedPassages int `json:"indexed_passages"`
}

// Answer is a generated response grounded in retrieved passages.
// An answer with empty Sources and no error is the normal outcome when
// nothing relevant was indexed; it is not a failure.
type Answer struct {
	// Text is the generated answer. For compound questions the
	// per-question answers are joined with a visible separator.
	Text string `json:"text"`

	// Sources lists the passages used, in retrieval rank order.
	Sources []Source `json:"sources"`

	// Metadata carries timing and usage counters.
	Metadata AnswerMetadata `json:"metadata"`
}
