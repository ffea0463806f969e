package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"repolens/internal/domain"
	"repolens/internal/port"
)

// DefaultTopK is used when a caller asks for zero or fewer results.
const DefaultTopK = 5

// SearchUseCase ranks stored chunks by cosine similarity to the query.
type SearchUseCase struct {
	store    port.VectorStore
	embedder port.Embedder
	logger   *slog.Logger
}

func NewSearchUseCase(store port.VectorStore, embedder port.Embedder, logger *slog.Logger) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Search returns at most topK results, best first. Failures are logged and
// yield an empty slice.
func (u *SearchUseCase) Search(ctx context.Context, repoID, query string, topK int) []domain.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	entries, err := u.store.Get(ctx, repoID)
	if err != nil {
		u.logger.Error("search failed", "repo_id", repoID, "error", err)
		return []domain.SearchResult{}
	}
	if len(entries) == 0 {
		return []domain.SearchResult{}
	}

	emb := u.embedder.Generate(ctx, query)
	if emb.Fallback {
		u.logger.Warn("query embedded with fallback, ranking is degraded", "repo_id", repoID)
	}

	results := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = domain.SearchResult{
			ChunkID:    e.ChunkID,
			Content:    e.Content,
			Metadata:   e.Metadata,
			Similarity: CosineSimilarity(emb.Vector, e.Vector),
		}
	}

	Rank(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Rank sorts by descending similarity. Incomparable (NaN) results go last
// and equal similarities keep their order.
func Rank(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Comparable() {
			return false
		}
		if !b.Comparable() {
			return true
		}
		return a.Similarity > b.Similarity
	})
}

// CosineSimilarity is dot(a,b) / (|a| * |b|). It is NaN when either vector
// has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ port.Searcher = (*SearchUseCase)(nil)
