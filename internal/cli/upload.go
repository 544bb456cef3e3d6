package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chatpdf/internal/domain"
)

var uploadIndex bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>...",
	Short: "Upload PDF documents",
	Long: `Copy PDF files into the upload directory and register them. Uploading a
file with the same name again replaces its content; a changed document is
re-indexed on next use.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&uploadIndex, "index", false, "build the vector index right away")
}

func runUpload(cmd *cobra.Command, args []string) error {
	bar := newProgress("Embedding")
	a, err := openApp(appOptions{buildProgress: bar.update})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	for _, path := range args {
		doc, err := uploadFile(ctx, a, path)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s (%s, %d bytes)\n", doc.Name, doc.ID, doc.Size)

		if !uploadIndex {
			continue
		}
		bar.reset("Embedding " + doc.Name)
		ix, _, err := a.ingest.Index(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", doc.Name, err)
		}
		if ix.Len() == 0 {
			fmt.Printf("  %s has no extractable text\n", doc.Name)
		} else {
			fmt.Printf("  indexed %d chunks\n", ix.Len())
		}
	}
	return nil
}

func uploadFile(ctx context.Context, a *app, path string) (domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := a.ingest.Upload(ctx, f, filepath.Base(path))
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return doc, nil
}

// resolveDocument finds a registered document by id or name. A path to a
// local file that is not registered yet is uploaded first.
func resolveDocument(ctx context.Context, a *app, ref string) (domain.Document, error) {
	doc, err := a.ingest.Resolve(ref)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Document{}, err
	}
	if st, statErr := os.Stat(ref); statErr == nil && !st.IsDir() {
		if doc, err := a.ingest.Resolve(filepath.Base(ref)); err == nil {
			return doc, nil
		}
		return uploadFile(ctx, a, ref)
	}
	return domain.Document{}, fmt.Errorf("document %q: %w", ref, err)
}
