package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chatpdf/internal/adapter/cache"
	"chatpdf/internal/domain"
	"chatpdf/internal/metrics"
	"chatpdf/internal/port"
)

// ProgressFunc reports embedded chunks out of total.
type ProgressFunc func(done, total int)

// Builder embeds chunks and assembles an Index. When a store is set,
// previously computed vectors are reused by content key.
type Builder struct {
	embedder  port.Embedder
	store     port.EmbeddingStore
	batchSize int
	progress  ProgressFunc
	logger    *slog.Logger
}

type Option func(*Builder)

func WithStore(store port.EmbeddingStore) Option {
	return func(b *Builder) { b.store = store }
}

func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) { b.progress = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

func NewBuilder(embedder port.Embedder, opts ...Option) *Builder {
	b := &Builder{
		embedder:  embedder,
		batchSize: 32,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "vectorindex")
	return b
}

// EmbeddingKey identifies the vector of text under the given embedding model.
func EmbeddingKey(model, text string) string {
	return cache.HashHex(model, text)
}

// Build computes one embedding per chunk. Zero chunks produce an empty index.
func (b *Builder) Build(ctx context.Context, docID string, chunks []domain.Chunk) (ix *Index, err error) {
	ctx, span := tracer.Start(ctx, "vectorindex.build")
	defer span.End()
	span.SetAttributes(
		attribute.String("chatpdf.doc.id", docID),
		attribute.Int("chatpdf.chunks", len(chunks)),
	)

	start := time.Now()
	defer func() {
		metrics.IndexBuilds.WithLabelValues(metrics.Result(err)).Inc()
		metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "build failed")
		}
	}()

	vectors := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return newIndex(docID, nil, nil, b.embedder), nil
	}

	model := b.embedder.ModelName()
	keys := make([]string, len(chunks))
	for i, c := range chunks {
		keys[i] = EmbeddingKey(model, c.Text)
	}

	var missing []int
	if b.store != nil {
		found, err := b.store.GetEmbeddings(keys)
		if err != nil {
			b.logger.Warn("embedding store read failed", "doc", docID, "error", err)
			found = nil
		}
		for i, k := range keys {
			if v, ok := found[k]; ok && len(v) == b.embedder.Dimension() {
				vectors[i] = v
				metrics.EmbeddingCacheLookups.WithLabelValues("persisted", "hit").Inc()
				continue
			}
			metrics.EmbeddingCacheLookups.WithLabelValues("persisted", "miss").Inc()
			missing = append(missing, i)
		}
	} else {
		missing = make([]int, len(chunks))
		for i := range chunks {
			missing[i] = i
		}
	}

	done := len(chunks) - len(missing)
	b.report(done, len(chunks))

	for lo := 0; lo < len(missing); lo += b.batchSize {
		hi := lo + b.batchSize
		if hi > len(missing) {
			hi = len(missing)
		}
		batch := missing[lo:hi]

		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = chunks[idx].Text
		}

		out, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunks: %v", domain.ErrRetrievalFailure, err)
		}
		if len(out) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrRetrievalFailure, len(texts), len(out))
		}

		fresh := make(map[string][]float32, len(batch))
		for j, idx := range batch {
			vectors[idx] = out[j]
			fresh[keys[idx]] = out[j]
		}
		if b.store != nil {
			if err := b.store.PutEmbeddings(fresh); err != nil {
				b.logger.Warn("embedding store write failed", "doc", docID, "error", err)
			}
		}

		done += len(batch)
		b.report(done, len(chunks))
	}

	b.logger.Debug("index built", "doc", docID, "chunks", len(chunks),
		"embedded", len(missing), "reused", len(chunks)-len(missing))

	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)
	return newIndex(docID, owned, vectors, b.embedder), nil
}

func (b *Builder) report(done, total int) {
	if b.progress != nil {
		b.progress(done, total)
	}
}
