package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"repolens/internal/usecase"
)

var (
	promptText   string
	promptTopK   int
	promptBranch string
	promptLocal  bool
	promptToken  string
)

var promptCmd = &cobra.Command{
	Use:   "prompt <owner/repo | path>",
	Short: "Assemble an LLM prompt for a query",
	Long: `Assemble a prompt holding the most relevant snippets of an indexed
repository, its file tree, a layer grouping of its files and the
package.json summary. The prompt is written to stdout.

Examples:
  repolens prompt octo/hello -q "how does routing work"
  repolens prompt --local . -q "where is config loaded" -k 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPromptCmd,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptText, "query", "q", "", "question the prompt should answer (required)")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, fmt.Sprintf("number of snippets (default %d)", usecase.DefaultPromptTopK))
	promptCmd.Flags().StringVarP(&promptBranch, "branch", "b", "", "branch to read (default from config)")
	promptCmd.Flags().BoolVar(&promptLocal, "local", false, "treat the argument as a local directory")
	promptCmd.Flags().StringVar(&promptToken, "token", "", "GitHub token (default from environment)")
	_ = promptCmd.MarkFlagRequired("query")
}

func runPromptCmd(cmd *cobra.Command, args []string) error {
	t, err := targetArg(args, promptLocal)
	if err != nil {
		return err
	}

	cfg := GetConfig()
	a, err := newApp(cmd.Context(), cfg, GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	branch := promptBranch
	if branch == "" {
		branch = cfg.GitHub.Branch
	}

	res, err := usecase.NewRepoContextUseCase(a.providers(t), a.searcher, a.logger).Assemble(cmd.Context(), usecase.PromptRequest{
		Credential: promptToken,
		Owner:      t.Owner,
		Repo:       t.Repo,
		Branch:     branch,
		Query:      promptText,
		TopK:       promptTopK,
	})
	if err != nil {
		return fmt.Errorf("failed to assemble prompt: %w", err)
	}

	fmt.Print(res.Prompt)
	return nil
}
