package main

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/internal/adapter/embedding"
	"repolens/internal/adapter/memstore"
	"repolens/internal/domain"
	"repolens/internal/usecase"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 150))

	long := strings.Repeat("é", 200)
	got := truncate(long, 150)
	require.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 150)+"...", got)
}

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Generate(_ context.Context, text string) domain.Embedding {
	e.calls++
	return domain.Embedding{Vector: embedding.Fallback(text), Model: embedding.FallbackModel, Fallback: true}
}

func TestRecordingEmbedderEmbedsQueryOnce(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewStore()
	require.NoError(t, st.Save(ctx, "repo", domain.IndexEntry{ChunkID: "a", Vector: embedding.Fallback("hello"), Content: "hello"}))

	inner := &countingEmbedder{}
	rec := &recordingEmbedder{Embedder: inner}

	results := usecase.NewSearchUseCase(st, rec, nil).Search(ctx, "repo", "hello", 5)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, embedding.Fallback("hello"), rec.last.Vector)
	assert.True(t, rec.last.Fallback)
}
