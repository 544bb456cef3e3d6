package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"chatpdf/config"
	"chatpdf/internal/adapter/blob"
	"chatpdf/internal/adapter/cache"
	"chatpdf/internal/adapter/embedding"
	"chatpdf/internal/adapter/fs"
	"chatpdf/internal/adapter/llm"
	"chatpdf/internal/adapter/memstore"
	"chatpdf/internal/adapter/pdf"
	"chatpdf/internal/adapter/store"
	"chatpdf/internal/metrics"
	"chatpdf/internal/port"
	"chatpdf/internal/usecase"
)

// app wires the adapters for one command invocation.
type app struct {
	store   *store.BoltStore
	blobs   *blob.Store
	queries *cache.QueryCache
	session *usecase.Session
	ingest  *usecase.IngestUseCase
	chat    *usecase.ChatUseCase
	extract *usecase.ExtractUseCase
	metrics *http.Server
}

var current *app

type appOptions struct {
	buildProgress func(done, total int)
}

func openApp(opts appOptions) (*app, error) {
	if current != nil {
		return current, nil
	}

	cfg := GetConfig()
	dir := GetRootDir()
	logger := slog.Default()

	if err := cfg.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.NewBoltStore(cfg.DBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	migration, err := st.Migrate(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if migration.ClearEmbeddings {
		logger.Info("stored embeddings cleared", "reason", migration.Reason)
	} else if migration.NeedsMigration {
		logger.Debug("schema migrated", "reason", migration.Reason)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	queries := cache.NewQueryCache(cfg.Embedding.QueryCacheSize, cfg.QueryCacheTTL())
	embedder = embedding.NewCachedEmbedder(embedder, queries)

	session, err := usecase.NewSession(cfg, llmFactory(cfg), cache.NewIndexCache())
	if err != nil {
		st.Close()
		return nil, err
	}

	blobs := blob.New(cfg.UploadDir(dir), cfg.OutputDir(dir))

	ingestOpts := []usecase.IngestOption{
		usecase.WithWalker(fs.NewWalker(cfg.Preload.Includes, cfg.Preload.Excludes)),
		usecase.WithIngestLogger(logger),
	}
	if cfg.Embedding.Persist {
		ingestOpts = append(ingestOpts, usecase.WithEmbeddingStore(st))
	}
	if opts.buildProgress != nil {
		ingestOpts = append(ingestOpts, usecase.WithBuildProgress(opts.buildProgress))
	}
	ingest := usecase.NewIngestUseCase(session, st, blobs, pdf.NewExtractor(logger), embedder, ingestOpts...)

	var history port.HistoryStore
	switch cfg.Storage.HistoryBackend {
	case "bolt":
		history = st
	case "memory":
		history = memstore.NewMemoryStore()
	default:
		history = blobs
	}

	answerer := usecase.NewAnswerer(cfg.Retrieve.TopK, session.Sampling(), cfg.LLMTimeout(), logger)

	a := &app{
		store:   st,
		blobs:   blobs,
		queries: queries,
		session: session,
		ingest:  ingest,
		chat:    usecase.NewChatUseCase(session, ingest, answerer, usecase.NewConversations(history), logger),
		extract: usecase.NewExtractUseCase(session, ingest, answerer, blobs, logger),
	}

	if cfg.Metrics.Addr != "" {
		a.metrics = serveMetrics(cfg.Metrics.Addr, logger)
	}

	current = a
	return a, nil
}

func closeApp() error {
	if current == nil {
		return nil
	}
	a := current
	current = nil

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	return a.store.Close()
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	opts := embedding.Options{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
		Timeout:   cfg.EmbeddingTimeout(),
	}

	switch cfg.Embedding.Provider {
	case "openai":
		if opts.BaseURL == "" {
			opts.BaseURL = cfg.LLM.BaseURL
		}
		e, err := embedding.NewOpenAICompatibleEmbedder(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return e, nil
	case "ollama":
		e, err := embedding.NewOllamaEmbedder(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return e, nil
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func llmFactory(cfg *config.Config) port.LLMFactory {
	return func(model string) (port.LLM, error) {
		apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.LLM.APIKeyEnv)
		}
		return llm.NewClient(cfg.LLM.BaseURL, apiKey, model, cfg.LLMTimeout()), nil
	}
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
