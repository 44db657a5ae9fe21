package driven

import "context"

// CompletionService produces text completions from a prompt.
// This is an optional service - when nil, queries degrade to
// retrieval-only answers.
type CompletionService interface {
	// Complete generates a completion for the prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (*CompletionResult, error)

	// ModelName returns the name of the completion model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures text generation behaviour.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// CompletionResult is the generated text plus reported token usage.
type CompletionResult struct {
	// Text is the generated completion.
	Text string

	// PromptTokens and CompletionTokens are the usage counters
	// reported by the service, 0 when not reported.
	PromptTokens     int
	CompletionTokens int
}
