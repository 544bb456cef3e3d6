package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"chatpdf/internal/adapter/cache"
	"chatpdf/internal/adapter/chunker"
	"chatpdf/internal/adapter/vectorindex"
	"chatpdf/internal/domain"
	"chatpdf/internal/port"
)

// IngestUseCase registers documents and builds their indexes through the
// session's index cache.
type IngestUseCase struct {
	session   *Session
	docs      port.DocumentStore
	blobs     port.BlobStore
	extractor port.TextExtractor
	embedder  port.Embedder
	vectors   port.EmbeddingStore
	walker    port.FileWalker
	progress  vectorindex.ProgressFunc
	logger    *slog.Logger
	now       func() time.Time
}

type IngestOption func(*IngestUseCase)

// WithEmbeddingStore reuses persisted chunk embeddings across processes.
func WithEmbeddingStore(s port.EmbeddingStore) IngestOption {
	return func(u *IngestUseCase) { u.vectors = s }
}

func WithWalker(w port.FileWalker) IngestOption {
	return func(u *IngestUseCase) { u.walker = w }
}

// WithBuildProgress reports embedding progress of index builds.
func WithBuildProgress(fn vectorindex.ProgressFunc) IngestOption {
	return func(u *IngestUseCase) { u.progress = fn }
}

func WithIngestLogger(l *slog.Logger) IngestOption {
	return func(u *IngestUseCase) { u.logger = l }
}

func NewIngestUseCase(
	session *Session,
	docs port.DocumentStore,
	blobs port.BlobStore,
	extractor port.TextExtractor,
	embedder port.Embedder,
	opts ...IngestOption,
) *IngestUseCase {
	u := &IngestUseCase{
		session:   session,
		docs:      docs,
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With("component", "ingest")
	return u
}

// Upload stores a PDF stream under filename and registers it. Uploading
// different content under an existing id evicts that id's cached index.
func (u *IngestUseCase) Upload(ctx context.Context, r io.Reader, filename string) (domain.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read upload: %w", err)
	}
	id, err := u.blobs.SaveUpload(ctx, filename, data)
	if err != nil {
		return domain.Document{}, err
	}
	return u.register(id, path.Base(filepath.ToSlash(filename)), data)
}

// Register records a PDF that already exists at location, such as a file
// found by preload.
func (u *IngestUseCase) Register(ctx context.Context, location string) (domain.Document, error) {
	data, err := u.blobs.Read(ctx, location)
	if err != nil {
		return domain.Document{}, fmt.Errorf("register %s: %w", location, err)
	}
	return u.register(location, path.Base(filepath.ToSlash(location)), data)
}

func (u *IngestUseCase) register(id, name string, data []byte) (domain.Document, error) {
	doc := domain.Document{
		ID:          id,
		Name:        name,
		ContentHash: contentHash(data),
		Size:        int64(len(data)),
		UploadedAt:  u.now().UTC(),
	}

	prev, err := u.docs.GetDocument(id)
	switch {
	case err == nil && prev.ContentHash != doc.ContentHash:
		if u.session.Indexes().Evict(id) {
			u.logger.Info("content changed, evicted cached index", "doc", id)
		}
	case err == nil:
		doc.UploadedAt = prev.UploadedAt
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Document{}, err
	}

	if err := u.docs.PutDocument(doc); err != nil {
		return domain.Document{}, fmt.Errorf("save document %s: %w", id, err)
	}
	u.logger.Debug("document registered", "doc", id, "size", doc.Size)
	return doc, nil
}

func contentHash(data []byte) string {
	return strconv.FormatUint(cache.Hash(data), 16)
}

// Resolve accepts a document id or display name. Among documents sharing a
// display name the latest upload wins.
func (u *IngestUseCase) Resolve(ref string) (domain.Document, error) {
	doc, err := u.docs.GetDocument(ref)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Document{}, err
	}

	docs, err := u.docs.ListDocuments()
	if err != nil {
		return domain.Document{}, err
	}
	for i := len(docs) - 1; i >= 0; i-- {
		if docs[i].Name == ref {
			return docs[i], nil
		}
	}
	return domain.Document{}, fmt.Errorf("document %q: %w", ref, domain.ErrNotFound)
}

// Remove unregisters ref and drops its cached index. The stored PDF is kept.
func (u *IngestUseCase) Remove(ctx context.Context, ref string) (domain.Document, error) {
	doc, err := u.Resolve(ref)
	if err != nil {
		return domain.Document{}, err
	}
	if err := u.docs.DeleteDocument(doc.ID); err != nil {
		return domain.Document{}, fmt.Errorf("remove document %s: %w", doc.ID, err)
	}
	u.session.Indexes().Evict(doc.ID)
	u.logger.Info("document removed", "doc", doc.ID)
	return doc, nil
}

func (u *IngestUseCase) List() ([]domain.Document, error) {
	return u.docs.ListDocuments()
}

// Index returns the cached index of ref, building it at most once.
func (u *IngestUseCase) Index(ctx context.Context, ref string) (port.VectorIndex, domain.Document, error) {
	doc, err := u.Resolve(ref)
	if err != nil {
		return nil, domain.Document{}, err
	}
	model := u.session.Model()
	ix, err := u.session.Indexes().GetOrBuild(ctx, doc.ID, func(ctx context.Context) (port.VectorIndex, error) {
		return u.build(ctx, doc, model)
	})
	if err != nil {
		return nil, doc, err
	}
	return ix, doc, nil
}

// build runs extract, chunk and embed. Unreadable documents degrade to an
// empty index instead of failing.
func (u *IngestUseCase) build(ctx context.Context, doc domain.Document, model string) (port.VectorIndex, error) {
	logger := u.logger.With("doc", doc.ID, "model", model)

	data, err := u.blobs.Read(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc.ID, err)
	}

	text, err := u.extractor.Extract(ctx, data)
	if err != nil {
		if !domain.IsDegraded(err) {
			return nil, err
		}
		logger.Warn("continuing with empty text", "error", err)
		text = domain.ExtractedText{}
	}

	size, overlap := u.session.Config().ChunkFor(model)
	chunks := chunker.NewCharChunker(size, overlap).Chunk(doc.ID, text.Text)
	if len(chunks) == 0 {
		logger.Warn("building empty index", "error", domain.ErrEmptyDocument)
	}

	opts := []vectorindex.Option{
		vectorindex.WithBatchSize(u.session.Config().Embedding.BatchSize),
		vectorindex.WithLogger(u.logger),
	}
	if u.vectors != nil {
		opts = append(opts, vectorindex.WithStore(u.vectors))
	}
	if u.progress != nil {
		opts = append(opts, vectorindex.WithProgress(u.progress))
	}

	ix, err := vectorindex.NewBuilder(u.embedder, opts...).Build(ctx, doc.ID, chunks)
	if err != nil {
		return nil, err
	}
	logger.Info("index built", "pages", text.Pages, "chunks", len(chunks), "chunk_size", size, "chunk_overlap", overlap)
	return ix, nil
}

// PreloadResult summarizes a preload run.
type PreloadResult struct {
	Indexed int
	Empty   int
	Failed  map[string]error
}

// Preload indexes every ref, continuing past failures.
func (u *IngestUseCase) Preload(ctx context.Context, refs []string, onDone func(ref string, err error)) (*PreloadResult, error) {
	res := &PreloadResult{Failed: make(map[string]error)}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ix, _, err := u.Index(ctx, ref)
		switch {
		case err != nil:
			res.Failed[ref] = err
			u.logger.Error("preload failed", "doc", ref, "error", err)
		case ix.Len() == 0:
			res.Empty++
		default:
			res.Indexed++
		}
		if onDone != nil {
			onDone(ref, err)
		}
	}
	return res, nil
}

// PreloadAll indexes every registered document.
func (u *IngestUseCase) PreloadAll(ctx context.Context, onDone func(ref string, err error)) (*PreloadResult, error) {
	docs, err := u.docs.ListDocuments()
	if err != nil {
		return nil, err
	}
	refs := make([]string, len(docs))
	for i, d := range docs {
		refs[i] = d.ID
	}
	return u.Preload(ctx, refs, onDone)
}

// Discover registers every PDF the walker finds under root and returns the
// registered ids.
func (u *IngestUseCase) Discover(ctx context.Context, root string) ([]string, error) {
	if u.walker == nil {
		return nil, fmt.Errorf("%w: no file walker configured", domain.ErrInvalidInput)
	}
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		doc, err := u.Register(ctx, f.Path)
		if err != nil {
			u.logger.Warn("skipping file", "path", f.Path, "error", err)
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
