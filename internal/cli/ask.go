package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"semdex/internal/contextutil"
	"semdex/internal/rag"
)

var askStream bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question answered from the indexed corpus",
	Long: `Retrieves the passages most relevant to the question and generates an
answer grounded in them. Cited file paths are printed after the answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer incrementally as it is generated")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	a, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if a.Answerer == nil {
		return errors.New("answering is not configured: set LLM_API_KEY in addition to the search settings")
	}

	ctx := contextutil.WithLogger(context.Background(), a.Logger)

	if askStream {
		answer, err := a.Answerer.Stream(ctx, question, func(chunk string) error {
			cmd.Print(chunk)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to generate answer: %w", err)
		}
		if answer.Abstained {
			cmd.Println(answer.Text)
			return nil
		}
		cmd.Println()
		printReferences(cmd, answer.References)
		return nil
	}

	answer, err := a.Answerer.Answer(ctx, question)
	if err != nil {
		return fmt.Errorf("failed to generate answer: %w", err)
	}

	cmd.Println(answer.Text)
	if !answer.Abstained {
		printReferences(cmd, answer.References)
	}
	return nil
}

func printReferences(cmd *cobra.Command, refs []rag.Reference) {
	if len(refs) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("References:")
	for _, ref := range refs {
		if ref.Section != "" {
			cmd.Printf("  - %s (%s)\n", ref.Path, ref.Section)
		} else {
			cmd.Printf("  - %s\n", ref.Path)
		}
	}
}
