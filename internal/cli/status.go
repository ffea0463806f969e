package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"repolens/internal/domain"
	"repolens/internal/usecase"
)

var (
	statusJSON  bool
	statusLocal bool
)

var statusCmd = &cobra.Command{
	Use:   "status <owner/repo | path>",
	Short: "Show whether a repository is indexed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().BoolVar(&statusLocal, "local", false, "treat the argument as a local directory")
}

func runStatus(cmd *cobra.Command, args []string) error {
	t, err := targetArg(args, statusLocal)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), GetConfig(), GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := usecase.NewStatusUseCase(a.store).Status(cmd.Context(), t.Owner, t.Repo)
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	if statusJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Repository: %s (%s)\n", domain.RepoSlug(t.Owner, t.Repo), domain.RepoID(t.Owner, t.Repo))
	if !status.Indexed {
		fmt.Println("Not indexed.")
		return nil
	}
	fmt.Printf("  Chunks:              %d\n", status.ChunkCount)
	fmt.Printf("  Fallback embeddings: %d\n", status.FallbackCount)
	return nil
}
