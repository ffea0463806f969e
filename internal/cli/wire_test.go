package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/config"
	"repolens/internal/domain"
	"repolens/internal/usecase"
)

func TestParseTarget(t *testing.T) {
	got, err := parseTarget("octo/hello", false)
	require.NoError(t, err)
	assert.Equal(t, target{Owner: "octo", Repo: "hello"}, got)

	for _, bad := range []string{"", "octo", "/hello", "octo/", "a/b/c"} {
		_, err := parseTarget(bad, false)
		assert.Error(t, err, bad)
	}

	dir := t.TempDir()
	got, err = parseTarget(dir, true)
	require.NoError(t, err)
	assert.Equal(t, localOwner, got.Owner)
	assert.Equal(t, filepath.Base(dir), got.Repo)
	assert.Equal(t, dir, got.Root)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = "memory"
	cfg.Embedding.Provider = "none"
	return cfg
}

func TestAppIndexLocalCheckout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"demo","dependencies":{"fiber":"1"}}`)
	writeFile(t, root, "src/app.js", "function start() {\n  return 1\n}\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = 1\n")
	writeFile(t, root, "logo.png", "binary")

	ctx := context.Background()
	a, err := newApp(ctx, memoryConfig(), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	tgt, err := parseTarget(root, true)
	require.NoError(t, err)

	result, err := a.indexer(a.providers(tgt)).Index(ctx, domain.IndexRequest{
		Owner:  tgt.Owner,
		Repo:   tgt.Repo,
		Branch: "main",
	}, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, 2, result.FilesProcessed)

	status, err := usecase.NewStatusUseCase(a.store).Status(ctx, tgt.Owner, tgt.Repo)
	require.NoError(t, err)
	assert.True(t, status.Indexed)
	assert.Equal(t, 2, status.ChunkCount)
	assert.Equal(t, 2, status.FallbackCount)

	results := a.searcher.Search(ctx, domain.RepoID(tgt.Owner, tgt.Repo), "start", 5)
	assert.Len(t, results, 2)

	res, err := usecase.NewRepoContextUseCase(a.providers(tgt), a.searcher, a.logger).Assemble(ctx, usecase.PromptRequest{
		Owner:  tgt.Owner,
		Repo:   tgt.Repo,
		Branch: "main",
		Query:  "how does it start",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Prompt, "how does it start")
	assert.Contains(t, res.Prompt, "src/app.js")
}

func TestAppBoltStoreUnderRootDir(t *testing.T) {
	rootDir = t.TempDir()
	t.Cleanup(func() { rootDir = "" })

	cfg := memoryConfig()
	cfg.Store.Backend = "bolt"

	a, err := newApp(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	a.Close()

	_, err = os.Stat(filepath.Join(rootDir, ".repolens", "index.db"))
	assert.NoError(t, err)
}
