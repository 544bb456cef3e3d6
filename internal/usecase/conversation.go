package usecase

import (
	"context"
	"fmt"
	"sync"

	"chatpdf/internal/domain"
	"chatpdf/internal/port"
)

// Conversations holds per-document chat history in memory, backed by a
// HistoryStore. Operations on one document are serialized; different
// documents proceed independently.
type Conversations struct {
	store port.HistoryStore

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	memory map[string][]domain.Turn
}

func NewConversations(store port.HistoryStore) *Conversations {
	return &Conversations{
		store:  store,
		locks:  make(map[string]*sync.Mutex),
		memory: make(map[string][]domain.Turn),
	}
}

func (c *Conversations) lock(docID string) func() {
	c.mu.Lock()
	l, ok := c.locks[docID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[docID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Load returns the turns of docID in order, empty if none were recorded.
func (c *Conversations) Load(ctx context.Context, docID string) ([]domain.Turn, error) {
	unlock := c.lock(docID)
	defer unlock()

	turns, err := c.loadLocked(ctx, docID)
	if err != nil {
		return nil, err
	}
	return cloneTurns(turns), nil
}

func (c *Conversations) Append(ctx context.Context, docID string, turn domain.Turn) error {
	unlock := c.lock(docID)
	defer unlock()
	return c.appendLocked(ctx, docID, turn)
}

// Exchange runs fn with the current history and appends the turn it returns.
// The document stays locked for the whole exchange so overlapping requests
// see each other's turns in order. Nothing is appended when fn fails.
func (c *Conversations) Exchange(ctx context.Context, docID string, fn func(history []domain.Turn) (domain.Turn, error)) (domain.Turn, error) {
	unlock := c.lock(docID)
	defer unlock()

	history, err := c.loadLocked(ctx, docID)
	if err != nil {
		return domain.Turn{}, err
	}
	turn, err := fn(cloneTurns(history))
	if err != nil {
		return domain.Turn{}, err
	}
	if err := c.appendLocked(ctx, docID, turn); err != nil {
		return turn, err
	}
	return turn, nil
}

// Clear forgets the history of docID in memory and in the store.
func (c *Conversations) Clear(ctx context.Context, docID string) error {
	unlock := c.lock(docID)
	defer unlock()

	if err := c.store.DeleteHistory(ctx, docID); err != nil {
		return fmt.Errorf("clear history %s: %w", docID, err)
	}
	c.mu.Lock()
	c.memory[docID] = nil
	c.mu.Unlock()
	return nil
}

func (c *Conversations) loadLocked(ctx context.Context, docID string) ([]domain.Turn, error) {
	c.mu.Lock()
	turns, ok := c.memory[docID]
	c.mu.Unlock()
	if ok {
		return turns, nil
	}

	turns, err := c.store.LoadHistory(ctx, docID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.memory[docID] = turns
	c.mu.Unlock()
	return turns, nil
}

// appendLocked persists first so memory never holds a turn the store lacks.
func (c *Conversations) appendLocked(ctx context.Context, docID string, turn domain.Turn) error {
	turns, err := c.loadLocked(ctx, docID)
	if err != nil {
		return err
	}
	next := append(cloneTurns(turns), turn)
	if err := c.store.SaveHistory(ctx, docID, next); err != nil {
		return fmt.Errorf("save history %s: %w", docID, err)
	}
	c.mu.Lock()
	c.memory[docID] = next
	c.mu.Unlock()
	return nil
}

func cloneTurns(turns []domain.Turn) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
