package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"repolens/config"
	"repolens/internal/api"
	"repolens/internal/usecase"
)

var (
	serveAddr      string
	serveAccessLog bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve indexing, status, search and prompt assembly over HTTP.

Routes:
  POST /index-repository   {accessToken, owner, repo, branch}
  GET  /index-status       ?owner=&repo=
  POST /search             {repoId | owner+repo, query, topK}
  POST /prompt             {owner, repo, branch, query, topK, accessToken}
  GET  /health
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveAccessLog, "access-log", false, "log every request")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cmd.Context(), cfg, GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()
	config.LogWithLogger(cfg, a.logger)

	providers := a.providers(target{})
	app := api.NewApp(api.Services{
		Indexer:  a.indexer(providers),
		Searcher: a.searcher,
		Status:   usecase.NewStatusUseCase(a.store),
		Prompt:   usecase.NewRepoContextUseCase(providers, a.searcher, a.logger),
		Gatherer: a.registry,
	}, cfg.Server, serveAccessLog)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", cfg.Server.Addr)
		errChan <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigChan:
		a.logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(ctx)
}
