package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chatpdf/internal/domain"
)

var (
	historyClear bool
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history <document>",
	Short: "Show or clear the chat history of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if historyClear {
			if err := a.chat.Clear(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		}

		turns, err := a.chat.History(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(turns)
		}
		printTurns(turns)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the history")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the stored [question, answer] pairs")
}

func printTurns(turns []domain.Turn) {
	if len(turns) == 0 {
		fmt.Println("No history.")
		return
	}
	for i, t := range turns {
		fmt.Printf("[%d] You: %s\n", i+1, t.Question)
		fmt.Printf("    Bot: %s\n\n", t.Answer)
	}
}
