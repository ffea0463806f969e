package port

import (
	"context"

	"repolens/internal/domain"
)

// Searcher ranks the stored chunks of a repository against a query.
type Searcher interface {
	// Search returns at most topK results. Failures yield an empty slice.
	Search(ctx context.Context, repoID, query string, topK int) []domain.SearchResult
}
