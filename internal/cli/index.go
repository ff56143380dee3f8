package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"semdex/internal/contextutil"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the corpus into the vector store",
	Long: `Scans the corpus, chunks and embeds changed documents, and reconciles the
vector store. Unchanged documents are skipped; --force drops all indexed state
and re-embeds everything.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "drop indexed state and re-embed everything")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if a.Pipeline == nil {
		return errors.New("indexing is not configured: set EMBEDDING_API_KEY, CORPUS_PATH and QDRANT_URL")
	}

	ctx = contextutil.WithLogger(ctx, a.Logger)

	if indexForce {
		if err := a.Pipeline.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}

	summary, err := a.Pipeline.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexing complete: %d created, %d updated, %d deleted, %d unchanged, %d failed\n",
		summary.Created, summary.Updated, summary.Deleted, summary.Unchanged, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to index", summary.Failed)
	}
	return nil
}
