package port

import (
	"context"

	"chatpdf/internal/domain"
)

// VectorIndex is a searchable set of chunk embeddings for one document.
type VectorIndex interface {
	// Search returns the k chunks closest to text, best first.
	Search(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error)

	// Len returns the number of indexed chunks.
	Len() int

	DocID() string
}
