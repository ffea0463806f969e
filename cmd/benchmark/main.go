package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"repolens/config"
	"repolens/internal/adapter/embedding"
	"repolens/internal/adapter/store"
	"repolens/internal/domain"
	"repolens/internal/port"
	"repolens/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "directory holding the config and the bolt index")
	repo := flag.String("repo", "", "indexed repository as owner/repo")
	query := flag.String("q", "", "query to test")
	topK := flag.Int("k", 10, "number of results")
	flag.Parse()

	owner, name, ok := strings.Cut(*repo, "/")
	if *query == "" || !ok {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -repo owner/repo -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Embedding path (service or fallback) and query dimension")
		fmt.Println("  2. Similarity of the top matches")
		fmt.Println("  3. Search latency")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(config.LoggingConfig{Level: "warn"}, os.Stderr)

	st, err := store.NewBoltStore(cfg.IndexDBPath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	repoID := domain.RepoID(owner, name)

	count, _ := st.Count(ctx, repoID)
	if count == 0 {
		fmt.Fprintf(os.Stderr, "No entries for %s - run 'repolens index %s' first\n", *repo, *repo)
		os.Exit(1)
	}

	embedder := &recordingEmbedder{Embedder: embedding.NewGenerator(
		embedding.NewClient(cfg.Embedding, cfg.APIKey()),
		embedding.WithBreaker(cfg.Embedding.Breaker),
		embedding.WithLogger(logger),
	)}

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Repository: %s (%s)\n", *repo, repoID)
	fmt.Printf("Entries indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)

	start := time.Now()
	results := usecase.NewSearchUseCase(st, embedder, logger).Search(ctx, repoID, *query, *topK)
	elapsed := time.Since(start)

	q := embedder.last
	fmt.Printf("Query embedded: %d dimensions via %s (fallback=%v)\n\n", len(q.Vector), q.Model, q.Fallback)

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	if len(results) == 0 {
		fmt.Println("No results.")
		os.Exit(1)
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	comparable := 0
	for i, r := range results {
		preview := strings.ReplaceAll(truncate(r.Content, 150), "\n", " ")

		if !r.Comparable() {
			fmt.Printf("%d. [N/A  -----] %s (%s)\n", i+1, r.Metadata.FilePath, r.Metadata.ChunkName)
			fmt.Printf("   %s\n\n", preview)
			continue
		}

		similarity := r.Similarity
		totalScore += similarity
		comparable++

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s (%s)\n", i+1, rating, similarity, r.Metadata.FilePath, r.Metadata.ChunkName)
		fmt.Printf("   %s\n\n", preview)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Search latency:     %s\n", elapsed.Round(time.Microsecond))
	if comparable == 0 {
		fmt.Println("  Status: NO COMPARABLE VECTORS - query and index use different models, re-index")
		return
	}

	avgScore := totalScore / float64(comparable)
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Similarity)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic search working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
}

// recordingEmbedder keeps the query embedding produced inside Search.
type recordingEmbedder struct {
	port.Embedder
	last domain.Embedding
}

func (e *recordingEmbedder) Generate(ctx context.Context, text string) domain.Embedding {
	e.last = e.Embedder.Generate(ctx, text)
	return e.last
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
