package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <document> <query>",
	Short: "Show the chunks retrieved for a query",
	Long: `Run a similarity search against a document's index and print the matching
chunks with their scores. Useful to check what context a question will get.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of chunks (default retrieve.top_k)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	bar := newProgress("Embedding")
	a, err := openApp(appOptions{buildProgress: bar.update})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	doc, err := resolveDocument(ctx, a, args[0])
	if err != nil {
		return err
	}
	ix, _, err := a.ingest.Index(ctx, doc.ID)
	if err != nil {
		return err
	}

	k := searchTopK
	if k <= 0 {
		k = GetConfig().Retrieve.TopK
	}
	query := strings.Join(args[1:], " ")

	fmt.Printf("Document: %s (%d chunks)\n", doc.Name, ix.Len())
	fmt.Printf("Query: %q\n", query)
	fmt.Println(strings.Repeat("-", 70))

	results, err := ix.Search(ctx, query, k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	total := 0.0
	for i, r := range results {
		preview := strings.ReplaceAll(r.Chunk.Text, "\n", " ")
		if runes := []rune(preview); len(runes) > 150 {
			preview = string(runes[:150]) + "..."
		}
		total += r.Score

		fmt.Printf("%d. [%s %.3f] chunk %d (chars %d-%d)\n", i+1, rating(r.Score), r.Score, r.Chunk.Index, r.Chunk.Start, r.Chunk.End)
		fmt.Printf("   %s\n\n", preview)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Average similarity: %.3f\n", total/float64(len(results)))
	fmt.Printf("Top-1 similarity:   %.3f\n", results[0].Score)
	return nil
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}
