package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var preloadCmd = &cobra.Command{
	Use:   "preload [dir]",
	Short: "Build vector indexes ahead of time",
	Long: `Build the vector index of every uploaded document. With a directory,
PDFs found under it are registered first (see preload.includes and
preload.excludes) and only those are indexed.

Embeddings are persisted when embedding.persist is set, so later chat and
extract runs reuse them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreload,
}

func init() {
	rootCmd.AddCommand(preloadCmd)
}

func runPreload(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bar := newProgress("Indexing")
	var refs []string
	if len(args) == 1 {
		root := args[0]
		if !filepath.IsAbs(root) {
			root = filepath.Join(GetRootDir(), root)
		}
		fmt.Printf("Scanning %s...\n", root)
		refs, err = a.ingest.Discover(ctx, root)
		if err != nil {
			return err
		}
	} else {
		docs, err := a.ingest.List()
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		for _, d := range docs {
			refs = append(refs, d.ID)
		}
	}
	if len(refs) == 0 {
		fmt.Println("No documents to index.")
		return nil
	}

	done := 0
	res, err := a.ingest.Preload(ctx, refs, func(ref string, err error) {
		done++
		bar.update(done, len(refs))
	})
	if err != nil {
		return fmt.Errorf("preload interrupted: %w", err)
	}

	fmt.Printf("Indexed: %d, without text: %d, failed: %d\n", res.Indexed, res.Empty, len(res.Failed))
	if GetConfig().Embedding.Persist {
		if n, err := a.store.CountEmbeddings(); err == nil {
			fmt.Printf("Stored embeddings: %d\n", n)
		}
	}
	for ref, ferr := range res.Failed {
		fmt.Printf("  %s: %v\n", ref, ferr)
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d documents failed to index", len(res.Failed))
	}
	return nil
}
