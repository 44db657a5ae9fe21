package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch internally up to the remote service's maximum
// accepted batch size and throttle bulk requests; callers may pass any
// number of texts.
type EmbeddingService interface {
	// Embed generates one vector per input text, preserving input
	// order and one-to-one correspondence.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne generates a vector for a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. Used at startup before committing to ingestion.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
