package quarry

import "context"

// EmbeddingProvider abstracts the embedding model: text in, fixed-dimension
// vector out. Unreachable backends surface as errors wrapping
// [ErrEmbeddingUnavailable].
type EmbeddingProvider interface {
	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the backing model name, recorded on every stored chunk.
	Name() string
}

// CompletionProvider abstracts the text-generation model: prompt in,
// completion out. Unreachable backends surface as errors wrapping
// [ErrGenerationUnavailable].
type CompletionProvider interface {
	// Complete sends the messages and returns the model's reply.
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	// Name returns the provider name.
	Name() string
}
