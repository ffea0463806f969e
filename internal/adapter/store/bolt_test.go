package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/config"
	"repolens/internal/domain"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id, content string) domain.IndexEntry {
	return domain.IndexEntry{
		ChunkID: id,
		Vector:  []float64{0.5, 0.25},
		Content: content,
		Metadata: domain.ChunkMetadata{
			FilePath:  "src/" + id + ".ts",
			FileName:  id + ".ts",
			ChunkType: domain.ChunkFunction,
			ChunkName: id,
			Repo:      "octocat/hello",
			Branch:    "main",
		},
	}
}

func TestBoltSaveGetClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Save(ctx, "r1", entry("zz", "last id, first saved")))
	require.NoError(t, s.Save(ctx, "r1", entry("aa", "second")))
	require.NoError(t, s.Save(ctx, "r2", entry("bb", "other repo")))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entry("zz", "last id, first saved"), got[0])
	assert.Equal(t, "aa", got[1].ChunkID)

	n, err := s.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx, "r1"))
	got, err = s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err = s.Count(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	repos, err := s.Repos()
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, repos)
}

func TestBoltSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Save(ctx, "r", entry("a", "v1")))
	require.NoError(t, s.Save(ctx, "r", entry("b", "b")))
	require.NoError(t, s.Save(ctx, "r", entry("a", "v2")))

	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ChunkID)
	assert.Equal(t, "v2", got[0].Content)
}

func TestBoltClearUnknownRepo(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Clear(context.Background(), "missing"))

	n, err := s.Count(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBoltPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "r", entry("a", "kept")))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Content)
}

func TestBoltConcurrentSave(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			assert.NoError(t, s.Save(ctx, "r", entry(id, id)))
		}(i)
	}
	wg.Wait()

	n, err := s.Count(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cfg := config.DefaultConfig()

	result, err := s.Migrate(cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	require.NoError(t, s.Save(ctx, "r", entry("a", "a")))

	result, err = s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.False(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	cfg.Index.WindowSize = 4000
	cfg.Index.WindowStride = 3500
	result, err = s.Migrate(cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsRebuild)
	assert.Equal(t, "index configuration changed", result.Reason)

	n, err := s.Count(ctx, "r")
	require.NoError(t, err)
	assert.Zero(t, n)

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
	assert.Equal(t, ComputeConfigHash(cfg), info.ConfigHash)
}
