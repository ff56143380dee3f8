package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"semdex/internal/contextutil"
	"semdex/internal/search"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed corpus",
	Long:  `Embeds the query and prints the indexed chunks most similar to it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", search.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	a, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if a.Search == nil {
		return errors.New("search is not configured: set EMBEDDING_API_KEY, CORPUS_PATH and QDRANT_URL")
	}

	ctx := contextutil.WithLogger(context.Background(), a.Logger)
	results, err := a.Search.Search(ctx, query, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, result := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, result.Path, result.Score)
		if result.Section != "" {
			cmd.Printf("      Section: %s\n", result.Section)
		}
		cmd.Printf("      %s\n", snippet(result.Text, 160))
		cmd.Println()
	}
	return nil
}

func snippet(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
