package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf/internal/adapter/chunker"
	"chatpdf/internal/adapter/embedding"
	"chatpdf/internal/domain"
)

func buildChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("c%d", i), DocID: "doc", Index: i, Text: t}
	}
	return chunks
}

func TestSearchReturnsAllWhenKExceedsSize(t *testing.T) {
	b := NewBuilder(embedding.NewHashEmbedder(128))
	chunks := buildChunks(
		"revenue grew in the fourth quarter",
		"CO2 emissions of 1234.5 tons/annum in 2023",
		"the company adopted a travel policy",
	)

	ix, err := b.Build(context.Background(), "doc", chunks)
	require.NoError(t, err)
	require.Equal(t, 3, ix.Len())

	res, err := ix.Search(context.Background(), "CO2 emissions tons/annum", 10)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, 1, res[0].Chunk.Index)

	seen := map[int]bool{}
	for i, r := range res {
		seen[r.Chunk.Index] = true
		if i > 0 {
			assert.GreaterOrEqual(t, res[i-1].Score, r.Score)
		}
	}
	assert.Len(t, seen, 3)
}

func TestSearchTiesKeepChunkOrder(t *testing.T) {
	b := NewBuilder(embedding.NewHashEmbedder(64))
	chunks := buildChunks("same text", "same text", "same text", "same text")

	ix, err := b.Build(context.Background(), "doc", chunks)
	require.NoError(t, err)

	for j := 0; j < 5; j++ {
		res, err := ix.Search(context.Background(), "same text", 4)
		require.NoError(t, err)
		for i, r := range res {
			assert.Equal(t, i, r.Chunk.Index)
		}
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	text := ""
	for i := 0; i < 50; i++ {
		text += fmt.Sprintf("Paragraph %d mentions emissions and targets for %d. ", i, 2000+i)
	}
	chunks := chunker.NewCharChunker(200, 20).Chunk("doc", text)

	ix, err := NewBuilder(embedding.NewHashEmbedder(64)).Build(context.Background(), "doc", chunks)
	require.NoError(t, err)

	first, err := ix.Search(context.Background(), "targets for 2030", 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for j := 0; j < 8; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := ix.Search(context.Background(), "targets for 2030", 4)
			assert.NoError(t, err)
			assert.Equal(t, first, again)
		}()
	}
	wg.Wait()
}

func TestEmptyIndex(t *testing.T) {
	ix, err := NewBuilder(embedding.NewHashEmbedder(8)).Build(context.Background(), "doc", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())

	res, err := ix.Search(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, res)
}

type failingEmbedder struct{ *embedding.HashEmbedder }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}

func TestBuildFailureIsRetrievalFailure(t *testing.T) {
	b := NewBuilder(failingEmbedder{embedding.NewHashEmbedder(8)})
	_, err := b.Build(context.Background(), "doc", buildChunks("x"))
	assert.ErrorIs(t, err, domain.ErrRetrievalFailure)
}

type memEmbeddings struct {
	mu   sync.Mutex
	data map[string][]float32
}

func (m *memEmbeddings) GetEmbeddings(keys []string) (map[string][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]float32{}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memEmbeddings) PutEmbeddings(v map[string][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, vec := range v {
		m.data[k] = vec
	}
	return nil
}

type countingEmbedder struct {
	*embedding.HashEmbedder
	mu    sync.Mutex
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.texts += len(texts)
	c.mu.Unlock()
	return c.HashEmbedder.Embed(ctx, texts)
}

func TestBuildReusesStoredEmbeddings(t *testing.T) {
	store := &memEmbeddings{data: map[string][]float32{}}
	emb := &countingEmbedder{HashEmbedder: embedding.NewHashEmbedder(16)}

	var last [2]int
	b := NewBuilder(emb, WithStore(store), WithBatchSize(2), WithProgress(func(done, total int) {
		last = [2]int{done, total}
	}))

	chunks := buildChunks("a", "b", "c", "d", "e")
	first, err := b.Build(context.Background(), "doc", chunks)
	require.NoError(t, err)
	assert.Equal(t, 5, emb.texts)
	assert.Equal(t, [2]int{5, 5}, last)

	second, err := b.Build(context.Background(), "doc", chunks)
	require.NoError(t, err)
	assert.Equal(t, 5, emb.texts, "second build must not embed again")
	assert.Equal(t, first.vectors, second.vectors)
}
