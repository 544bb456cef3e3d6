package usecase

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatpdf/config"
	"chatpdf/internal/adapter/blob"
	"chatpdf/internal/adapter/cache"
	"chatpdf/internal/adapter/embedding"
	"chatpdf/internal/adapter/memstore"
	"chatpdf/internal/domain"
	"chatpdf/internal/port"
)

// stubLLM answers with fn and records every prompt it receives.
type stubLLM struct {
	model string
	fn    func(model, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (s *stubLLM) Complete(ctx context.Context, messages []domain.Message, _ domain.SamplingConfig) (string, error) {
	prompt := messages[len(messages)-1].Content
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.fn(s.model, prompt)
}

func (s *stubLLM) ModelName() string { return s.model }

func (s *stubLLM) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// textExtractor treats the upload bytes as the document text.
type textExtractor struct {
	calls int32
	delay time.Duration
}

func (e *textExtractor) Extract(_ context.Context, data []byte) (domain.ExtractedText, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if bytes.HasPrefix(data, []byte("ENCRYPTED")) {
		return domain.ExtractedText{}, fmt.Errorf("%w: invalid password", domain.ErrUnreadableDocument)
	}
	return domain.ExtractedText{Text: string(data), Pages: 1}, nil
}

func (e *textExtractor) Calls() int { return int(atomic.LoadInt32(&e.calls)) }

type harness struct {
	cfg       *config.Config
	session   *Session
	ingest    *IngestUseCase
	answerer  *Answerer
	chat      *ChatUseCase
	extract   *ExtractUseCase
	extractor *textExtractor
	blobs     *blob.Store
	history   *memstore.MemoryStore
	outDir    string

	mu   sync.Mutex
	llms map[string]*stubLLM
}

func newHarness(t *testing.T, fn func(model, prompt string) (string, error)) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "hash"
	cfg.Chunk.Size = 200
	cfg.Chunk.Overlap = 20
	cfg.LLM.Models = []config.ModelConfig{
		{Name: "meta-llama-3-70b-instruct"},
		{Name: "mixtral-8x7b-instruct"},
		{Name: "qwen1.5-72b-chat", ChunkSize: 100, ChunkOverlap: 10},
	}
	require.NoError(t, cfg.Validate())

	h := &harness{
		cfg:       cfg,
		extractor: &textExtractor{},
		history:   memstore.NewMemoryStore(),
		outDir:    filepath.Join(dir, "extract"),
		llms:      make(map[string]*stubLLM),
	}
	h.blobs = blob.New(filepath.Join(dir, "uploads"), h.outDir)

	factory := func(model string) (port.LLM, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		l := &stubLLM{model: model, fn: fn}
		h.llms[model] = l
		return l, nil
	}

	session, err := NewSession(cfg, factory, cache.NewIndexCache())
	require.NoError(t, err)
	h.session = session

	h.ingest = NewIngestUseCase(session, memstore.NewMemoryStore(), h.blobs, h.extractor, embedding.NewHashEmbedder(128))
	h.answerer = NewAnswerer(cfg.Retrieve.TopK, session.Sampling(), time.Second, nil)
	h.chat = NewChatUseCase(session, h.ingest, h.answerer, NewConversations(h.history), nil)
	h.extract = NewExtractUseCase(session, h.ingest, h.answerer, h.blobs, nil)
	return h
}

func (h *harness) llm(model string) *stubLLM {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.llms[model]
}

func (h *harness) upload(t *testing.T, name, text string) domain.Document {
	t.Helper()
	doc, err := h.ingest.Upload(context.Background(), strings.NewReader(text), name)
	require.NoError(t, err)
	return doc
}

func echoLLM(model, prompt string) (string, error) {
	return fmt.Sprintf("[%s] answer", model), nil
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}
