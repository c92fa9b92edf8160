package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

var (
	searchTopK       int
	searchMinScore   float64
	searchExtensions []string
	searchPrefix     string
	searchContext    int
	searchContainer  string
	searchNoRerank   bool
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed files",
	Long: `Runs hybrid retrieval over the active container: semantic and
keyword candidates are fused, optionally reranked, and deduplicated
to one result per file.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 10, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this (0-100)")
	searchCmd.Flags().StringSliceVar(&searchExtensions, "ext", nil, "restrict to file extensions")
	searchCmd.Flags().StringVar(&searchPrefix, "prefix", "", "restrict to paths under this prefix")
	searchCmd.Flags().IntVar(&searchContext, "context-bytes", 0, "truncate snippets to this many bytes")
	searchCmd.Flags().StringVarP(&searchContainer, "container", "c", "", "container to search (default: active)")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "skip the reranker stage")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := domain.SearchOptions{
		TopK:          searchTopK,
		MinScore:      searchMinScore,
		Extensions:    searchExtensions,
		PathPrefix:    searchPrefix,
		ContextBytes:  searchContext,
		Container:     searchContainer,
		DisableRerank: searchNoRerank,
	}

	results, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		if errors.Is(err, domain.ErrProviderMismatch) {
			return fmt.Errorf("%w (recreate the container or rebuild its index with the current provider)", err)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		cmd.Printf("  [%d] %s (%.1f)\n", i+1, r.Path, r.Score)
		if snippet := strings.TrimSpace(r.Snippet); snippet != "" {
			cmd.Printf("      %s\n", firstLine(snippet))
		}
		cmd.Println()
	}
	return nil
}

var relatedCmd = &cobra.Command{
	Use:   "related [file]",
	Short: "Find files similar to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelated,
}

func init() {
	relatedCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 10, "maximum number of results")
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	results, err := searchService.Related(cmd.Context(), args[0], searchTopK)
	if err != nil {
		return fmt.Errorf("related failed: %w", err)
	}
	if len(results) == 0 {
		cmd.Println("No related files found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.1f)\n", i+1, r.Path, r.Score)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
