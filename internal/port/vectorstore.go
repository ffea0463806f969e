package port

import (
	"context"

	"repolens/internal/domain"
)

// VectorStore keeps index entries per repository id.
type VectorStore interface {
	// Save upserts one entry, creating the repository on first use.
	Save(ctx context.Context, repoID string, entry domain.IndexEntry) error

	// Get returns every entry of a repository, one per chunk id, in a
	// stable order. An unknown repository yields an empty slice.
	Get(ctx context.Context, repoID string) ([]domain.IndexEntry, error)

	// Clear removes the whole repository. Readers never see it half
	// cleared.
	Clear(ctx context.Context, repoID string) error

	// Count returns the number of entries of a repository.
	Count(ctx context.Context, repoID string) (int, error)

	Close() error
}
