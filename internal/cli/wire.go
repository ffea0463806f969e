package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"repolens/config"
	"repolens/internal/adapter/cache"
	"repolens/internal/adapter/chunker"
	"repolens/internal/adapter/embedding"
	"repolens/internal/adapter/filter"
	"repolens/internal/adapter/fs"
	"repolens/internal/adapter/github"
	"repolens/internal/adapter/lock"
	"repolens/internal/adapter/memstore"
	"repolens/internal/adapter/pgstore"
	"repolens/internal/adapter/store"
	"repolens/internal/metrics"
	"repolens/internal/port"
	"repolens/internal/usecase"
)

// target names the repository a command works on. Root is set for local
// checkouts.
type target struct {
	Owner string
	Repo  string
	Root  string
}

// localOwner is the owner recorded for repositories indexed from disk.
const localOwner = "local"

// parseTarget accepts "owner/repo", or a directory when local is set.
func parseTarget(arg string, local bool) (target, error) {
	if local {
		if arg == "" {
			arg = GetRootDir()
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return target{}, fmt.Errorf("invalid path: %w", err)
		}
		return target{Owner: localOwner, Repo: filepath.Base(abs), Root: abs}, nil
	}

	owner, repo, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return target{}, fmt.Errorf("expected owner/repo, got %q", arg)
	}
	return target{Owner: owner, Repo: repo}, nil
}

// app holds everything a command needs. Close releases the store and
// any network clients.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store    port.VectorStore
	locker   port.Locker
	embedder port.Embedder
	searcher *cache.CachedSearcher
	excluder *filter.PathExcluder

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		excluder: filter.NewPathExcluder(cfg.Index.ExcludeDirs, cfg.Index.Excludes),
	}
	a.metrics = metrics.New(a.registry)

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	a.locker = a.newLocker()
	a.embedder = a.newEmbedder()

	var qc *cache.QueryCache
	if cfg.Search.CacheSize > 0 {
		qc = cache.NewQueryCache(cfg.Search.CacheSize, cfg.Search.CacheTTL)
	}
	a.searcher = cache.NewCachedSearcher(usecase.NewSearchUseCase(a.store, a.embedder, logger), qc, a.metrics)

	return a, nil
}

func (a *app) openStore(ctx context.Context) (port.VectorStore, error) {
	switch a.cfg.Store.Backend {
	case "memory":
		return memstore.NewStore(), nil
	case "postgres":
		if a.cfg.Store.PostgresDSN == "" {
			return nil, fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
		st, err := pgstore.Open(ctx, a.cfg.Store.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return st, nil
	default:
		dir := GetRootDir()
		if err := a.cfg.EnsureDBDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		st, err := store.NewBoltStore(a.cfg.IndexDBPath(dir))
		if err != nil {
			return nil, fmt.Errorf("failed to open index store: %w", err)
		}
		res, err := st.Migrate(a.cfg)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		if res.NeedsRebuild {
			a.logger.Warn("index cleared, reindex required", "reason", res.Reason)
		}
		return st, nil
	}
}

func (a *app) newLocker() port.Locker {
	if a.cfg.Lock.Backend != "redis" {
		return lock.NewLocal()
	}
	client := redis.NewClient(&redis.Options{Addr: a.cfg.Lock.RedisAddr})
	a.closers = append(a.closers, client.Close)
	return lock.NewRedis(client, a.cfg.Lock.TTL, a.logger)
}

func (a *app) newEmbedder() port.Embedder {
	return embedding.NewGenerator(embedding.NewClient(a.cfg.Embedding, a.cfg.APIKey()),
		embedding.WithBreaker(a.cfg.Embedding.Breaker),
		embedding.WithMetrics(a.metrics),
		embedding.WithLogger(a.logger),
	)
}

// providers returns the content source for t. Local targets read from
// disk and ignore the credential.
func (a *app) providers(t target) port.ProviderFactory {
	if t.Root != "" {
		return func(string) (port.ContentProvider, error) {
			return fs.NewProvider(t.Root, a.excluder)
		}
	}
	return github.NewFactory(a.cfg.GitHub, a.cfg.GitHubToken(), a.excluder, a.logger)
}

func (a *app) indexer(providers port.ProviderFactory) *usecase.IndexUseCase {
	return usecase.NewIndexUseCase(
		providers,
		filter.New(a.cfg.Filter),
		chunker.New(a.cfg.Index, a.logger),
		a.embedder,
		a.store,
		a.locker,
		usecase.WithWorkers(a.cfg.Index.Workers),
		usecase.WithInvalidator(a.searcher),
		usecase.WithIndexMetrics(a.metrics),
		usecase.WithIndexLogger(a.logger),
		usecase.WithProgressEvery(a.cfg.Index.ProgressEvery),
	)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}
