package port

import (
	"context"

	"chatpdf/internal/domain"
)

type Chunker interface {
	Chunk(docID, text string) []domain.Chunk
}

// TextExtractor turns raw PDF bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (domain.ExtractedText, error)
}
