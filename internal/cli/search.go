package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"repolens/internal/api"
	"repolens/internal/domain"
)

var (
	searchText  string
	searchTopK  int
	searchJSON  bool
	searchLocal bool
)

var searchCmd = &cobra.Command{
	Use:   "search <owner/repo | path>",
	Short: "Search indexed chunks",
	Long: `Rank the indexed chunks of a repository by cosine similarity to a query.

Examples:
  repolens search octo/hello -q "authentication handler"
  repolens search octo/hello -q "database connection" -k 10 --json
  repolens search --local . -q "config loading"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().BoolVar(&searchLocal, "local", false, "treat the argument as a local directory")
	_ = searchCmd.MarkFlagRequired("query")
}

func targetArg(args []string, local bool) (target, error) {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	return parseTarget(arg, local)
}

func runSearch(cmd *cobra.Command, args []string) error {
	t, err := targetArg(args, searchLocal)
	if err != nil {
		return err
	}

	cfg := GetConfig()
	a, err := newApp(cmd.Context(), cfg, GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	topK := cfg.Search.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	results := a.searcher.Search(cmd.Context(), domain.RepoID(t.Owner, t.Repo), searchText, topK)

	if searchJSON {
		output, err := json.MarshalIndent(api.ToResultViews(results), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		score := "n/a"
		if r.Comparable() {
			score = fmt.Sprintf("%.3f", r.Similarity)
		}
		fmt.Printf("--- [%d] %s %s %q (similarity: %s) ---\n", i+1, r.Metadata.FilePath, r.Metadata.ChunkType, r.Metadata.ChunkName, score)
		text := r.Content
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
