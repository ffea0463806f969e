package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"repolens/internal/domain"
	"repolens/internal/metrics"
	"repolens/internal/port"
)

// Invalidator is told whenever the entries of a repository change.
type Invalidator interface {
	Invalidate(repoID string)
}

// Progress is reported after every listed file, processed or skipped.
type Progress struct {
	Path      string
	Done      int
	Processed int
	Total     int
}

// IndexUseCase rebuilds the index of one repository from its content
// provider.
type IndexUseCase struct {
	providers     port.ProviderFactory
	filter        port.FileFilter
	chunker       port.Chunker
	embedder      port.Embedder
	store         port.VectorStore
	locker        port.Locker
	invalidator   Invalidator
	metrics       *metrics.Metrics
	logger        *slog.Logger
	workers       int
	progressEvery int
}

type IndexOption func(*IndexUseCase)

// WithWorkers sets how many files are processed at once. One worker keeps
// listing order.
func WithWorkers(n int) IndexOption {
	return func(u *IndexUseCase) {
		if n > 0 {
			u.workers = n
		}
	}
}

func WithInvalidator(inv Invalidator) IndexOption {
	return func(u *IndexUseCase) { u.invalidator = inv }
}

func WithIndexMetrics(m *metrics.Metrics) IndexOption {
	return func(u *IndexUseCase) { u.metrics = m }
}

func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(u *IndexUseCase) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithProgressEvery sets how many processed files separate progress log lines.
func WithProgressEvery(n int) IndexOption {
	return func(u *IndexUseCase) {
		if n > 0 {
			u.progressEvery = n
		}
	}
}

func NewIndexUseCase(
	providers port.ProviderFactory,
	filter port.FileFilter,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	locker port.Locker,
	opts ...IndexOption,
) *IndexUseCase {
	u := &IndexUseCase{
		providers:     providers,
		filter:        filter,
		chunker:       chunker,
		embedder:      embedder,
		store:         store,
		locker:        locker,
		logger:        slog.Default(),
		workers:       1,
		progressEvery: 10,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Index clears the repository's entries and rebuilds them from the current
// branch listing. Per-file failures are logged and skipped. Repository-level
// failures come back as an unsuccessful IndexResult.
//
// The returned error is non-nil only when the run lock cannot be taken:
// port.ErrRepoLocked when another run holds the repository, or the locker's
// own failure (e.g. Redis unreachable). Nothing is cleared in either case
// and the result carries the same message.
func (u *IndexUseCase) Index(ctx context.Context, req domain.IndexRequest, onProgress func(Progress)) (domain.IndexResult, error) {
	start := time.Now()
	repoID := domain.RepoID(req.Owner, req.Repo)
	slug := domain.RepoSlug(req.Owner, req.Repo)
	logger := u.logger.With("repo", slug, "branch", req.Branch)

	unlock, err := u.locker.TryLock(ctx, repoID)
	if err != nil {
		logger.Warn("index run rejected", "error", err)
		return domain.IndexResult{Success: false, Error: err.Error()}, err
	}
	defer unlock()

	logger.Info("starting indexing")

	result, err := u.run(ctx, req, repoID, logger, onProgress)
	u.metrics.IndexRun(err == nil, time.Since(start))
	if err != nil {
		logger.Error("repository indexing failed", "error", err)
		result.Success = false
		result.Error = err.Error()
		return result, nil
	}

	logger.Info("indexing complete",
		"processed", result.FilesProcessed,
		"total", result.TotalFiles,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (u *IndexUseCase) run(ctx context.Context, req domain.IndexRequest, repoID string, logger *slog.Logger, onProgress func(Progress)) (domain.IndexResult, error) {
	var result domain.IndexResult

	provider, err := u.providers(req.Credential)
	if err != nil {
		return result, fmt.Errorf("failed to create content provider: %w", err)
	}

	if err := u.store.Clear(ctx, repoID); err != nil {
		return result, fmt.Errorf("failed to clear previous index: %w", err)
	}
	u.invalidate(repoID)
	// entries written from here on must not be hidden behind stale results
	defer u.invalidate(repoID)
	logger.Debug("cleared previous index")

	paths, err := provider.ListFiles(ctx, req.Owner, req.Repo, req.Branch)
	if err != nil {
		return result, fmt.Errorf("failed to list files: %w", err)
	}
	result.TotalFiles = len(paths)
	logger.Info("found files to process", "total", len(paths))

	var (
		mu        sync.Mutex
		done      int
		processed int
	)
	report := func(filePath string, ok bool) {
		mu.Lock()
		defer mu.Unlock()

		done++
		if ok {
			processed++
			if processed%u.progressEvery == 0 {
				logger.Info("progress", "processed", processed, "total", len(paths))
			}
		}
		if onProgress != nil {
			onProgress(Progress{Path: filePath, Done: done, Processed: processed, Total: len(paths)})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for _, filePath := range paths {
		if gctx.Err() != nil {
			break
		}
		filePath := filePath
		g.Go(func() error {
			report(filePath, u.processFile(gctx, provider, req, repoID, filePath, logger))
			return nil
		})
	}
	_ = g.Wait()

	result.FilesProcessed = processed
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("indexing interrupted: %w", err)
	}

	result.Success = true
	return result, nil
}

// processFile runs one file through filter, chunker, embedder and store.
// It reports whether the file was stored.
func (u *IndexUseCase) processFile(ctx context.Context, provider port.ContentProvider, req domain.IndexRequest, repoID, filePath string, logger *slog.Logger) (ok bool) {
	logger = logger.With("path", filePath)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("error processing file", "error", fmt.Sprint(r))
			u.metrics.FileSkipped("panic")
			ok = false
		}
	}()

	// path and extension rules do not depend on the size
	if !u.filter.ShouldProcess(filePath, 0) {
		return u.skip(logger, "filtered", nil)
	}

	content, err := provider.GetFileContent(ctx, req.Owner, req.Repo, filePath, req.Branch)
	if errors.Is(err, port.ErrFileNotFound) {
		return u.skip(logger, "no_content", nil)
	}
	if err != nil {
		return u.skip(logger, "fetch_error", err)
	}
	if content == "" {
		return u.skip(logger, "no_content", nil)
	}

	if !u.filter.ShouldProcess(filePath, int64(len(content))) {
		return u.skip(logger, "filtered", nil)
	}

	chunks := u.chunker.Chunk(content, filePath)
	logger.Debug("split file", "chunks", len(chunks))

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return u.skip(logger, "cancelled", err)
		}

		emb := u.embedder.Generate(ctx, c.Content)
		entry := domain.IndexEntry{
			ChunkID: domain.ChunkID(filePath, c.Name, c.Content),
			Vector:  emb.Vector,
			Content: c.Content,
			Metadata: domain.ChunkMetadata{
				FilePath:  filePath,
				FileName:  path.Base(filePath),
				ChunkType: c.Type,
				ChunkName: c.Name,
				Repo:      domain.RepoSlug(req.Owner, req.Repo),
				Branch:    req.Branch,
				Fallback:  emb.Fallback,
			},
		}

		if err := u.store.Save(ctx, repoID, entry); err != nil {
			return u.skip(logger, "store_error", err)
		}
		u.metrics.ChunkStored()
	}

	u.metrics.FileProcessed()
	return true
}

func (u *IndexUseCase) skip(logger *slog.Logger, reason string, err error) bool {
	u.metrics.FileSkipped(reason)
	if err != nil {
		logger.Warn("skipping file", "reason", reason, "error", err)
	} else {
		logger.Debug("skipping file", "reason", reason)
	}
	return false
}

func (u *IndexUseCase) invalidate(repoID string) {
	if u.invalidator != nil {
		u.invalidator.Invalidate(repoID)
	}
}
