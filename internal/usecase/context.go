package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"repolens/internal/domain"
	"repolens/internal/port"
)

// DefaultPromptTopK is how many snippets a prompt carries by default.
const DefaultPromptTopK = 3

type PromptRequest struct {
	Credential string
	Owner      string
	Repo       string
	Branch     string
	Query      string
	TopK       int
}

type PromptResult struct {
	Prompt string
	Chunks []domain.SearchResult
}

// RepoContextUseCase gathers the repository context for one query and
// assembles it into a prompt.
type RepoContextUseCase struct {
	providers port.ProviderFactory
	searcher  port.Searcher
	logger    *slog.Logger
}

func NewRepoContextUseCase(providers port.ProviderFactory, searcher port.Searcher, logger *slog.Logger) *RepoContextUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepoContextUseCase{
		providers: providers,
		searcher:  searcher,
		logger:    logger,
	}
}

func (u *RepoContextUseCase) Assemble(ctx context.Context, req PromptRequest) (PromptResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultPromptTopK
	}
	logger := u.logger.With("repo", domain.RepoSlug(req.Owner, req.Repo))

	provider, err := u.providers(req.Credential)
	if err != nil {
		return PromptResult{}, fmt.Errorf("failed to create content provider: %w", err)
	}

	paths, err := provider.ListFiles(ctx, req.Owner, req.Repo, req.Branch)
	if err != nil {
		return PromptResult{}, fmt.Errorf("failed to list files: %w", err)
	}

	pkg, err := provider.GetFileContent(ctx, req.Owner, req.Repo, "package.json", req.Branch)
	if err != nil && !errors.Is(err, port.ErrFileNotFound) {
		logger.Warn("could not fetch package.json", "error", err)
	}

	chunks := u.searcher.Search(ctx, domain.RepoID(req.Owner, req.Repo), req.Query, topK)
	logger.Debug("retrieved chunks", "chunks", len(chunks))
	if len(chunks) == 0 {
		logger.Info("no indexed content found, using basic prompt")
	}

	prompt, err := BuildPrompt(PromptInput{
		Query:           req.Query,
		Chunks:          chunks,
		FileStructure:   FormatFileStructure(paths),
		PackageMetadata: PackageMetadata(pkg),
		Grouping:        FormatGrouping(GroupFiles(paths)),
	})
	if err != nil {
		return PromptResult{}, err
	}
	return PromptResult{Prompt: prompt, Chunks: chunks}, nil
}
