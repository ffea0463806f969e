package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"repolens/internal/domain"
	"repolens/internal/usecase"
)

var (
	indexBranch string
	indexLocal  bool
	indexToken  string
)

var indexCmd = &cobra.Command{
	Use:   "index <owner/repo | path>",
	Short: "Index a repository for retrieval",
	Long: `Index every eligible file of a repository branch. Existing entries of the
repository are replaced.

Examples:
  repolens index octo/hello                  # Index the main branch
  repolens index octo/hello --branch dev     # Index another branch
  repolens index --local /path/to/checkout   # Index a directory on disk`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexBranch, "branch", "b", "", "branch to index (default from config)")
	indexCmd.Flags().BoolVar(&indexLocal, "local", false, "treat the argument as a local directory")
	indexCmd.Flags().StringVar(&indexToken, "token", "", "GitHub token (default from environment)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	if arg == "" && !indexLocal {
		return fmt.Errorf("expected owner/repo or --local")
	}
	t, err := parseTarget(arg, indexLocal)
	if err != nil {
		return err
	}

	cfg := GetConfig()
	a, err := newApp(cmd.Context(), cfg, GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	branch := indexBranch
	if branch == "" {
		branch = cfg.GitHub.Branch
	}

	req := domain.IndexRequest{
		Credential: indexToken,
		Owner:      t.Owner,
		Repo:       t.Repo,
		Branch:     branch,
	}

	if t.Root != "" {
		fmt.Printf("Scanning %s...\n", t.Root)
	} else {
		fmt.Printf("Listing %s/%s@%s...\n", t.Owner, t.Repo, branch)
	}

	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)

	onProgress := func(p usecase.Progress) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(p.Done)

		if p.Done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(p.Done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(p.Total-p.Done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := a.indexer(a.providers(t)).Index(cmd.Context(), req, onProgress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Repository:      %s/%s (%s)\n", t.Owner, t.Repo, domain.RepoID(t.Owner, t.Repo))
	fmt.Printf("  Files processed: %d of %d\n", result.FilesProcessed, result.TotalFiles)

	if !result.Success {
		return fmt.Errorf("indexing failed: %s", result.Error)
	}

	status, err := usecase.NewStatusUseCase(a.store).Status(cmd.Context(), t.Owner, t.Repo)
	if err == nil {
		fmt.Printf("  Chunks stored:   %d\n", status.ChunkCount)
		if status.FallbackCount > 0 {
			fmt.Printf("  Fallback embeddings: %d\n", status.FallbackCount)
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
