package embedding

import (
	"context"
	"fmt"

	"chatpdf/internal/adapter/cache"
	"chatpdf/internal/metrics"
	"chatpdf/internal/port"
)

// CachedEmbedder serves single-text queries from a QueryCache. Batches are
// passed through, since they are chunk texts embedded once per build.
type CachedEmbedder struct {
	port.Embedder
	cache *cache.QueryCache
}

func NewCachedEmbedder(inner port.Embedder, c *cache.QueryCache) *CachedEmbedder {
	return &CachedEmbedder{Embedder: inner, cache: c}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return e.Embedder.Embed(ctx, texts)
	}

	model := e.Embedder.ModelName()
	if v, ok := e.cache.Get(model, texts[0]); ok {
		metrics.EmbeddingCacheLookups.WithLabelValues("query", "hit").Inc()
		return [][]float32{v}, nil
	}
	metrics.EmbeddingCacheLookups.WithLabelValues("query", "miss").Inc()

	out, err := e.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("embedder %s returned no vector", model)
	}
	e.cache.Put(model, texts[0], out[0])
	return out, nil
}
