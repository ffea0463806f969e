package usecase

import (
	"context"
	"fmt"

	"repolens/internal/domain"
	"repolens/internal/port"
)

type StatusUseCase struct {
	store port.VectorStore
}

func NewStatusUseCase(store port.VectorStore) *StatusUseCase {
	return &StatusUseCase{store: store}
}

// Status reports whether owner/repo has any stored chunks, and how many of
// them carry a fallback vector.
func (u *StatusUseCase) Status(ctx context.Context, owner, repo string) (domain.IndexStatus, error) {
	repoID := domain.RepoID(owner, repo)

	count, err := u.store.Count(ctx, repoID)
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("failed to count index entries: %w", err)
	}
	if count == 0 {
		return domain.IndexStatus{}, nil
	}

	// the fallback flag lives on each entry
	entries, err := u.store.Get(ctx, repoID)
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("failed to read index: %w", err)
	}

	status := domain.IndexStatus{
		Indexed:    true,
		ChunkCount: count,
	}
	for _, e := range entries {
		if e.Metadata.Fallback {
			status.FallbackCount++
		}
	}
	return status, nil
}
