package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf/internal/adapter/memstore"
	"chatpdf/internal/domain"
)

func TestAppendThenReload(t *testing.T) {
	store := memstore.NewMemoryStore()
	ctx := context.Background()

	convs := NewConversations(store)
	var want []domain.Turn
	for i := 0; i < 5; i++ {
		turn := domain.Turn{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
		want = append(want, turn)
		require.NoError(t, convs.Append(ctx, "x.pdf", turn))
	}

	// a fresh instance reads the persisted history
	reloaded, err := NewConversations(store).Load(ctx, "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, want, reloaded)

	unseen, err := convs.Load(ctx, "never.pdf")
	require.NoError(t, err)
	assert.Empty(t, unseen)
}

func TestConcurrentAppendsKeepEveryTurn(t *testing.T) {
	convs := NewConversations(memstore.NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, convs.Append(ctx, "doc", domain.Turn{Question: fmt.Sprint(i), Answer: "a"}))
		}()
	}
	wg.Wait()

	turns, err := convs.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, turns, 20)
}

func TestExchangeFailureAppendsNothing(t *testing.T) {
	convs := NewConversations(memstore.NewMemoryStore())
	ctx := context.Background()

	_, err := convs.Exchange(ctx, "doc", func([]domain.Turn) (domain.Turn, error) {
		return domain.Turn{}, errors.New("llm down")
	})
	require.Error(t, err)

	turns, err := convs.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestLoadReturnsCopy(t *testing.T) {
	convs := NewConversations(memstore.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, convs.Append(ctx, "doc", domain.Turn{Question: "q", Answer: "a"}))

	turns, _ := convs.Load(ctx, "doc")
	turns[0].Answer = "changed"

	again, _ := convs.Load(ctx, "doc")
	assert.Equal(t, "a", again[0].Answer)
}

func TestClear(t *testing.T) {
	store := memstore.NewMemoryStore()
	convs := NewConversations(store)
	ctx := context.Background()
	require.NoError(t, convs.Append(ctx, "doc", domain.Turn{Question: "q", Answer: "a"}))

	require.NoError(t, convs.Clear(ctx, "doc"))

	turns, _ := convs.Load(ctx, "doc")
	assert.Empty(t, turns)
	persisted, _ := store.LoadHistory(ctx, "doc")
	assert.Empty(t, persisted)
}

type failingHistory struct{ *memstore.MemoryStore }

func (failingHistory) SaveHistory(context.Context, string, []domain.Turn) error {
	return errors.New("disk full")
}

func TestAppendSaveFailureLeavesMemoryUnchanged(t *testing.T) {
	convs := NewConversations(failingHistory{memstore.NewMemoryStore()})
	ctx := context.Background()

	require.Error(t, convs.Append(ctx, "doc", domain.Turn{Question: "q", Answer: "a"}))
	turns, err := convs.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

// flakyHistory fails the first load, as an unreachable remote store would.
type flakyHistory struct {
	*memstore.MemoryStore
	failLoads int
}

func (f *flakyHistory) LoadHistory(ctx context.Context, docID string) ([]domain.Turn, error) {
	if f.failLoads > 0 {
		f.failLoads--
		return nil, errors.New("permission denied")
	}
	return f.MemoryStore.LoadHistory(ctx, docID)
}

func TestExchangeLoadFailureKeepsPersistedHistory(t *testing.T) {
	ctx := context.Background()
	mem := memstore.NewMemoryStore()
	earlier := []domain.Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	require.NoError(t, mem.SaveHistory(ctx, "doc", earlier))

	store := &flakyHistory{MemoryStore: mem, failLoads: 1}
	convs := NewConversations(store)

	called := false
	_, err := convs.Exchange(ctx, "doc", func([]domain.Turn) (domain.Turn, error) {
		called = true
		return domain.Turn{Question: "q3", Answer: "a3"}, nil
	})
	require.Error(t, err)
	assert.False(t, called)

	persisted, err := mem.LoadHistory(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, earlier, persisted)

	// the failed load was not cached, so the next exchange sees every turn
	_, err = convs.Exchange(ctx, "doc", func(history []domain.Turn) (domain.Turn, error) {
		assert.Equal(t, earlier, history)
		return domain.Turn{Question: "q3", Answer: "a3"}, nil
	})
	require.NoError(t, err)
	persisted, _ = mem.LoadHistory(ctx, "doc")
	assert.Len(t, persisted, 3)
}
