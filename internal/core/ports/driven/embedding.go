package driven

import "context"

// Embedder generates vector embeddings from text.
//
// Every vector returned must have exactly Dimensions() values; a provider
// returning anything else is a configuration error. Failures are returned
// as errors wrapping domain.ErrEmbedding and are never papered over with
// synthetic vectors.
//
// Implementations:
//   - Ollama (all-minilm, nomic-embed-text), the local provider
//   - OpenAI (text-embedding-3-small, text-embedding-3-large), the remote provider
type Embedder interface {
	// EmbedDocuments returns one vector per text, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query. Equivalent to EmbedDocuments([text])[0].
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	// This must match the VectorIndex collection.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
