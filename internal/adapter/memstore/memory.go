package memstore

import (
	"context"
	"fmt"
	"sync"

	"chatpdf/internal/domain"
)

// MemoryStore is a process-local DocumentStore and HistoryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]domain.Document
	order   []string
	history map[string][]domain.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]domain.Document),
		history: make(map[string][]domain.Turn),
	}
}

func (s *MemoryStore) PutDocument(doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) ListDocuments() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.docs[id])
	}
	return docs, nil
}

func (s *MemoryStore) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return nil
	}
	delete(s.docs, id)
	delete(s.history, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// LoadHistory returns a copy so callers cannot mutate stored turns.
func (s *MemoryStore) LoadHistory(_ context.Context, docID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.history[docID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, docID string, turns []domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]domain.Turn, len(turns))
	copy(stored, turns)
	s.history[docID] = stored
	return nil
}

func (s *MemoryStore) DeleteHistory(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, docID)
	return nil
}
