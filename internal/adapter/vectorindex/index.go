package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chatpdf/internal/domain"
	"chatpdf/internal/port"
)

var tracer = otel.Tracer("chatpdf/vectorindex")

// Index is an immutable exact cosine index over one document's chunks.
// It is safe for concurrent use.
type Index struct {
	docID    string
	chunks   []domain.Chunk
	vectors  [][]float32
	norms    []float64
	embedder port.Embedder
}

func newIndex(docID string, chunks []domain.Chunk, vectors [][]float32, embedder port.Embedder) *Index {
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = norm(v)
	}
	return &Index{
		docID:    docID,
		chunks:   chunks,
		vectors:  vectors,
		norms:    norms,
		embedder: embedder,
	}
}

func (ix *Index) DocID() string { return ix.docID }

func (ix *Index) Len() int { return len(ix.chunks) }

// Search embeds text and returns up to k chunks by descending cosine
// similarity. Equal scores keep document order.
func (ix *Index) Search(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	if len(ix.chunks) == 0 || k <= 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "vectorindex.search")
	defer span.End()
	span.SetAttributes(
		attribute.String("chatpdf.doc.id", ix.docID),
		attribute.Int("chatpdf.search.k", k),
	)

	embeddings, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed query")
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrRetrievalFailure, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: embedding returned empty result", domain.ErrRetrievalFailure)
	}
	query := embeddings[0]
	qn := norm(query)

	scores := make([]domain.ScoredChunk, len(ix.chunks))
	for i, v := range ix.vectors {
		scores[i] = domain.ScoredChunk{Chunk: ix.chunks[i], Score: cosine(query, qn, v, ix.norms[i])}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, na float64, b []float32, nb float64) float64 {
	if len(a) != len(b) || na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
