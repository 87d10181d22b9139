package ai

import "context"

// Oracle completes text for enrichment stages.
// Implementations must be thread-safe for concurrent use.
type Oracle interface {
	// Complete sends the instruction together with the input text to a language model
	// and returns the model's textual answer, trimmed of surrounding whitespace,
	// code fences and quotes.
	// Returns ErrEmptyResponse if the model answers with nothing usable.
	// Returns an error if the call fails or the context is done.
	Complete(ctx context.Context, instruction, input string) (string, error)
}

// OracleFunc adapts an ordinary function to the Oracle interface.
type OracleFunc func(ctx context.Context, instruction, input string) (string, error)

// Complete calls f(ctx, instruction, input).
func (f OracleFunc) Complete(ctx context.Context, instruction, input string) (string, error) {
	return f(ctx, instruction, input)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Oracle returns the text completion service.
	// The returned Oracle is safe for concurrent use.
	Oracle() Oracle

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
