package usecase

import (
	"fmt"
	"sync"

	"chatpdf/config"
	"chatpdf/internal/adapter/cache"
	"chatpdf/internal/domain"
	"chatpdf/internal/port"
)

// Session is the shared state every operation runs against: the index
// cache and the currently selected model. Operations snapshot the model
// when they start, so SetModel only affects later calls.
type Session struct {
	cfg     *config.Config
	factory port.LLMFactory
	indexes *cache.IndexCache

	mu    sync.RWMutex
	model string

	clientsMu sync.Mutex
	clients   map[string]port.LLM
}

func NewSession(cfg *config.Config, factory port.LLMFactory, indexes *cache.IndexCache) (*Session, error) {
	if _, ok := cfg.Model(cfg.LLM.DefaultModel); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModel, cfg.LLM.DefaultModel)
	}
	if indexes == nil {
		indexes = cache.NewIndexCache()
	}
	return &Session{
		cfg:     cfg,
		factory: factory,
		indexes: indexes,
		model:   cfg.LLM.DefaultModel,
		clients: make(map[string]port.LLM),
	}, nil
}

func (s *Session) Config() *config.Config { return s.cfg }

func (s *Session) Indexes() *cache.IndexCache { return s.indexes }

func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel selects the model used by subsequent operations.
func (s *Session) SetModel(name string) error {
	if _, ok := s.cfg.Model(name); !ok {
		return fmt.Errorf("%w: %s (available: %v)", domain.ErrUnknownModel, name, s.cfg.ModelNames())
	}
	s.mu.Lock()
	s.model = name
	s.mu.Unlock()
	return nil
}

func (s *Session) Models() []string {
	return s.cfg.ModelNames()
}

// LLM returns a client for the currently selected model.
func (s *Session) LLM() (port.LLM, error) {
	return s.llmFor(s.Model())
}

func (s *Session) llmFor(model string) (port.LLM, error) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if c, ok := s.clients[model]; ok {
		return c, nil
	}
	c, err := s.factory(model)
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", model, err)
	}
	s.clients[model] = c
	return c, nil
}

// Sampling returns the generation settings shared by all models.
func (s *Session) Sampling() domain.SamplingConfig {
	return domain.SamplingConfig{
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
	}
}
