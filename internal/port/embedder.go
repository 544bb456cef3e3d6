package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingStore persists computed embeddings by content key.
type EmbeddingStore interface {
	// GetEmbeddings returns the vectors found for keys. Missing keys are absent
	// from the result.
	GetEmbeddings(keys []string) (map[string][]float32, error)

	PutEmbeddings(vectors map[string][]float32) error
}
