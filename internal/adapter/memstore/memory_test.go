package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/internal/domain"
)

func entry(id, content string) domain.IndexEntry {
	return domain.IndexEntry{
		ChunkID: id,
		Vector:  []float64{1, 2, 3},
		Content: content,
		Metadata: domain.ChunkMetadata{
			FilePath:  "src/" + id + ".ts",
			ChunkType: domain.ChunkFile,
		},
	}
}

func TestSaveGetClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	got, err := s.Get(ctx, "never-indexed")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(ctx, "repo", entry("a", "alpha")))
	require.NoError(t, s.Save(ctx, "repo", entry("b", "beta")))
	require.NoError(t, s.Save(ctx, "other", entry("c", "gamma")))

	got, err = s.Get(ctx, "repo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ChunkID)
	assert.Equal(t, "b", got[1].ChunkID)

	require.NoError(t, s.Clear(ctx, "repo"))

	got, err = s.Get(ctx, "repo")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := s.Count(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "clearing one repository must not touch another")
}

func TestSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Save(ctx, "repo", entry("a", "first")))
	require.NoError(t, s.Save(ctx, "repo", entry("b", "beta")))
	require.NoError(t, s.Save(ctx, "repo", entry("a", "second")))

	got, err := s.Get(ctx, "repo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ChunkID, "overwrite keeps the original position")
	assert.Equal(t, "second", got[0].Content)
}

func TestClearUnknownRepo(t *testing.T) {
	assert.NoError(t, NewStore().Clear(context.Background(), "missing"))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			repo := fmt.Sprintf("repo-%d", w%2)
			for i := 0; i < 100; i++ {
				_ = s.Save(ctx, repo, entry(fmt.Sprintf("%d-%d", w, i), "x"))
				_, _ = s.Get(ctx, repo)
				if i%25 == 0 {
					_ = s.Clear(ctx, repo)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, repo := range []string{"repo-0", "repo-1"} {
		entries, err := s.Get(ctx, repo)
		require.NoError(t, err)
		n, err := s.Count(ctx, repo)
		require.NoError(t, err)
		assert.Len(t, entries, n)
	}
}
