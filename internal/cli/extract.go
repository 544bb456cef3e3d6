package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chatpdf/internal/domain"
	"chatpdf/internal/usecase"
)

var (
	extractAll    bool
	extractPrint  bool
	extractFields bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [document]...",
	Short: "Extract ESG fields into JSON records",
	Long: `Answer the fixed set of emission and sustainability questions for each
document and write one JSON record per document to the output directory.
Fields the model cannot answer are written as "Value not found".`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractAll, "all", false, "extract every uploaded document")
	extractCmd.Flags().BoolVar(&extractPrint, "print", false, "print each record after writing it")
	extractCmd.Flags().BoolVar(&extractFields, "fields", false, "list the extracted fields and their questions")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !extractAll && !extractFields {
		return fmt.Errorf("name a document or pass --all")
	}

	bar := newProgress("Embedding")
	a, err := openApp(appOptions{buildProgress: bar.update})
	if err != nil {
		return err
	}
	if extractFields {
		printFields(a.extract.Fields())
		return nil
	}
	ctx := cmd.Context()

	refs := args
	if extractAll {
		docs, err := a.ingest.List()
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		refs = nil
		for _, d := range docs {
			refs = append(refs, d.ID)
		}
	}

	var failed int
	for _, ref := range refs {
		doc, err := resolveDocument(ctx, a, ref)
		if err != nil {
			return err
		}

		bar.reset("Embedding " + doc.Name)
		fields := newProgress("Extracting " + doc.Name)
		res, err := a.extract.ExtractAll(ctx, doc.ID, func(field string, done, total int) {
			fields.update(done, total)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", doc.Name, err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}

		fmt.Printf("Wrote %s (%d/%d fields found)\n", res.Location,
			len(res.Record.Fields)-res.Missing, len(res.Record.Fields))
		if extractPrint {
			printRecord(res)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(refs))
	}
	return nil
}

func printRecord(res *usecase.ExtractResult) {
	data, err := json.MarshalIndent(res.Record, "", "    ")
	if err != nil {
		return
	}
	fmt.Println(string(data))
}

func printFields(fields []domain.Field) {
	for _, f := range fields {
		fmt.Printf("%s\n    %s\n", f.Name, f.Question)
	}
}
