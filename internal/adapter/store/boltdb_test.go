package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf/config"
	"chatpdf/internal/domain"
)

func openStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "chatpdf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentsKeepUploadOrder(t *testing.T) {
	s := openStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	for _, id := range []string{"up/z.pdf", "up/a.pdf", "up/m.pdf"} {
		require.NoError(t, s.PutDocument(domain.Document{ID: id, Name: filepath.Base(id), UploadedAt: now}))
	}
	// replacing keeps position
	require.NoError(t, s.PutDocument(domain.Document{ID: "up/z.pdf", Name: "z.pdf", ContentHash: "new"}))

	docs, err := s.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "up/z.pdf", docs[0].ID)
	assert.Equal(t, "new", docs[0].ContentHash)
	assert.Equal(t, "up/a.pdf", docs[1].ID)
	assert.Equal(t, "up/m.pdf", docs[2].ID)

	doc, err := s.GetDocument("up/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc.Name)
	assert.True(t, doc.UploadedAt.Equal(now))

	_, err = s.GetDocument("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.DeleteDocument("up/a.pdf"))
	docs, err = s.ListDocuments()
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestHistoryRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	turns, err := s.LoadHistory(ctx, "unseen.pdf")
	require.NoError(t, err)
	assert.Empty(t, turns)

	want := []domain.Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	require.NoError(t, s.SaveHistory(ctx, "doc.pdf", want))

	got, err := s.LoadHistory(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.DeleteHistory(ctx, "doc.pdf"))
	got, err = s.LoadHistory(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.PutEmbeddings(map[string][]float32{
		"k1": {0.25, -1, 3.5},
		"k2": {1},
	}))

	got, err := s.GetEmbeddings([]string{"k1", "k2", "k3"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -1, 3.5}, got["k1"])
	assert.Equal(t, []float32{1}, got["k2"])
	_, ok := got["k3"]
	assert.False(t, ok)

	n, err := s.CountEmbeddings()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMigrateClearsEmbeddingsOnConfigChange(t *testing.T) {
	s := openStore(t)
	cfg := config.DefaultConfig().Embedding

	res, err := s.Migrate(cfg)
	require.NoError(t, err)
	assert.True(t, res.NeedsMigration)
	assert.False(t, res.ClearEmbeddings)

	require.NoError(t, s.PutEmbeddings(map[string][]float32{"k": {1, 2}}))

	res, err = s.Migrate(cfg)
	require.NoError(t, err)
	assert.False(t, res.NeedsMigration)
	assert.False(t, res.ClearEmbeddings)
	n, _ := s.CountEmbeddings()
	assert.Equal(t, 1, n)

	cfg.Model = "another-model"
	res, err = s.Migrate(cfg)
	require.NoError(t, err)
	assert.True(t, res.ClearEmbeddings)
	n, _ = s.CountEmbeddings()
	assert.Equal(t, 0, n)

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
	assert.Equal(t, ComputeConfigHash(cfg), info.ConfigHash)
}

func TestMigrateFromNewerSchemaDropsVectors(t *testing.T) {
	s := openStore(t)
	cfg := config.DefaultConfig().Embedding

	require.NoError(t, s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1, ConfigHash: ComputeConfigHash(cfg)}))
	require.NoError(t, s.PutEmbeddings(map[string][]float32{"old": {1, 2}}))

	res, err := s.Migrate(cfg)
	require.NoError(t, err)
	assert.True(t, res.ClearEmbeddings)

	n, err := s.CountEmbeddings()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
}
